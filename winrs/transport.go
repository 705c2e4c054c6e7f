package winrs

import (
	"context"
	"time"

	"github.com/smnsjas/go-winrm/wsman"
)

// Transport abstracts the WSMan operations a Shell needs, so the
// engine can be exercised against a mock in tests (§4.8).
type Transport interface {
	Create(ctx context.Context, resourceURI string, options map[string]string, body []byte) (*wsman.EndpointReference, error)
	Command(ctx context.Context, epr *wsman.EndpointReference, options map[string]string, body []byte) (string, error)
	Send(ctx context.Context, epr *wsman.EndpointReference, commandID, stream string, data []byte, end bool) error
	Receive(ctx context.Context, epr *wsman.EndpointReference, commandID, desiredStreams string, timeout time.Duration) (*wsman.ReceiveResult, error)
	Signal(ctx context.Context, epr *wsman.EndpointReference, commandID, code string) error
	Delete(ctx context.Context, epr *wsman.EndpointReference) error
}

// Ensure *wsman.Client implements Transport.
var _ Transport = (*wsman.Client)(nil)
