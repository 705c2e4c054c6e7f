package winrmclient

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/smnsjas/go-winrm/internal/log"
	"github.com/smnsjas/go-winrm/registry"
	"github.com/smnsjas/go-winrm/services"
	"github.com/smnsjas/go-winrm/wsman"
	"github.com/smnsjas/go-winrm/wsman/auth"
	"github.com/smnsjas/go-winrm/wsman/transport"
)

// AuthType selects the authentication scheme a Client uses.
type AuthType int

const (
	// AuthBasic sends HTTP Basic credentials; use only over HTTPS.
	AuthBasic AuthType = iota
	// AuthNTLM performs an NTLMSSP handshake with optional CBT.
	AuthNTLM
	// AuthKerberos performs a SPNEGO/Kerberos handshake, encrypting
	// traffic at the WinRM message layer over plain HTTP.
	AuthKerberos
)

// Config holds the settings needed to establish a Client.
type Config struct {
	// Endpoint is the WinRM URL, e.g. "https://host:5986/wsman". The
	// scheme, port, and path are defaulted by ParseEndpoint if absent.
	Endpoint string

	Username string
	Password string
	Domain   string

	AuthType AuthType

	// Kerberos-only settings.
	Realm        string
	SPN          string
	Krb5ConfPath string
	CCachePath   string

	InsecureSkipVerify bool
	Timeout            time.Duration
	ProxyURL           string

	// EnableCBT turns on Channel Binding Tokens for NTLM over HTTPS.
	EnableCBT bool
}

// Client is the high-level WinRM client: one WSMan transport shared by
// the WinRS shell engine and the CIM-based registry/services
// accessors.
type Client struct {
	ws       *wsman.Client
	Registry *registry.Client
	Services *services.Client
}

// New validates cfg, wires the selected authenticator into an HTTP(S)
// transport, and returns a ready-to-use Client.
func New(cfg Config) (*Client, error) {
	endpoint, err := ParseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = transport.DefaultTimeout
	}

	tr := transport.NewHTTPTransport(
		transport.WithTimeout(timeout),
		transport.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
		transport.WithProxy(cfg.ProxyURL),
	)

	authenticator, err := buildAuthenticator(cfg)
	if err != nil {
		return nil, err
	}
	tr.Client().Transport = authenticator.Transport(tr.Client().Transport)

	ws := wsman.NewClient(endpoint, tr)

	return &Client{
		ws:       ws,
		Registry: registry.New(ws),
		Services: services.New(ws),
	}, nil
}

func buildAuthenticator(cfg Config) (auth.Authenticator, error) {
	creds := auth.Credentials{Username: cfg.Username, Password: cfg.Password, Domain: cfg.Domain}

	switch cfg.AuthType {
	case AuthBasic:
		return auth.NewBasicAuth(creds), nil

	case AuthNTLM:
		opts := []auth.NTLMAuthOption{}
		if cfg.EnableCBT {
			opts = append(opts, auth.WithCBT(true))
		}
		return auth.NewNTLMAuth(creds, opts...), nil

	case AuthKerberos:
		provider, err := auth.NewKerberosProvider(auth.KerberosProviderConfig{
			TargetSPN:    cfg.SPN,
			Realm:        cfg.Realm,
			Krb5ConfPath: cfg.Krb5ConfPath,
			CCachePath:   cfg.CCachePath,
			Credentials:  &creds,
		})
		if err != nil {
			return nil, fmt.Errorf("winrmclient: kerberos provider: %w", err)
		}
		return auth.NewNegotiateAuth(provider), nil

	default:
		return nil, fmt.Errorf("winrmclient: unknown auth type %d", cfg.AuthType)
	}
}

// WSMan exposes the underlying protocol client for callers that need
// the WinRS shell engine or raw Get/Enumerate/Invoke access.
func (c *Client) WSMan() *wsman.Client { return c.ws }

// NewShellLogger returns a slog.Logger with credential-redacting
// output, suitable for passing to application code that logs
// WinRM request/response details (usernames, tokens, tickets).
func NewShellLogger() *slog.Logger {
	handler := log.NewRedactingHandler(slog.NewTextHandler(os.Stderr, nil))
	return slog.New(handler)
}

// RunCommand is a convenience wrapper: it opens a shell, runs one
// command to completion, and closes the shell, mirroring the simplest
// winrm.exe invocation shape. For multiple commands in one session,
// open a winrs.Shell directly via WSMan().
func (c *Client) RunCommand(ctx context.Context, executable string, args ...string) (stdout, stderr []byte, exitCode int, err error) {
	shellRunner, err := newShellRunner(c.ws)
	if err != nil {
		return nil, nil, 0, err
	}
	defer shellRunner.close(ctx)
	return shellRunner.run(ctx, executable, args...)
}
