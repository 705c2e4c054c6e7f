package wsman

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// CodeOperationTimeout is the WSMan fault code a server raises when a
// Receive long-poll found no data before its OperationTimeout elapsed.
// The shell receive loop treats this code as "no data this round" and
// retries rather than surfacing it to the caller (§7).
const CodeOperationTimeout = 2150858793

// TransportError is any failure at or below HTTP: connection refused,
// TLS handshake failure, a non-2xx response carrying no SOAP fault, or
// a malformed response body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("wsman: transport error: %v", e.Err)
	}
	return fmt.Sprintf("wsman: transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps err as a TransportError tagged with the
// operation that was attempted (e.g. "POST").
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// ProtocolError reports structurally valid but semantically wrong
// SOAP/WSMan content: a missing Body, a missing expected child element,
// a missing ShellId/CommandId, a missing EnumerationContext, or an
// unrecognized ReceiveResponse child.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "wsman: protocol error: " + e.Reason
}

// NewProtocolError builds a ProtocolError with the given reason text.
func NewProtocolError(reason string) *ProtocolError {
	return &ProtocolError{Reason: reason}
}

// SOAPFaultError is a SOAP fault that carries no WSMan detail element.
type SOAPFaultError struct {
	Code   string
	Reason string
}

func (e *SOAPFaultError) Error() string {
	return fmt.Sprintf("wsman: soap fault %s: %s", e.Code, e.Reason)
}

// WSManFaultError is a SOAP fault carrying a WSManFault/@Code detail.
// WSMan code CodeOperationTimeout is intentionally absorbed by the
// shell receive loop rather than propagated (§7).
type WSManFaultError struct {
	Code      string
	Reason    string
	WSManCode int
	Machine   string
	Message   string
}

func (e *WSManFaultError) Error() string {
	return fmt.Sprintf("wsman: fault %s (wsman code %d): %s", e.Code, e.WSManCode, e.Reason)
}

// IsTimeout reports whether this fault is the operation-timeout code
// the receive loop absorbs.
func (e *WSManFaultError) IsTimeout() bool {
	return e.WSManCode == CodeOperationTimeout
}

// IsAccessDenied reports whether this fault is a Windows access-denied
// condition (ERROR_ACCESS_DENIED = 5).
func (e *WSManFaultError) IsAccessDenied() bool {
	return e.WSManCode == 5 || strings.Contains(e.Code, "AccessDenied")
}

// IsShellNotFound reports whether this fault indicates the target
// shell no longer exists on the server.
func (e *WSManFaultError) IsShellNotFound() bool {
	return strings.Contains(e.Code, "InvalidSelectors") ||
		strings.Contains(e.Reason, "shell was not found") ||
		strings.Contains(e.Message, "shell was not found")
}

// EncryptionError reports an ill-formed multipart/encrypted response
// or a plaintext length mismatch during WinRM message decryption.
type EncryptionError struct {
	Reason string
}

func (e *EncryptionError) Error() string {
	return "wsman: encryption error: " + e.Reason
}

// NewEncryptionError builds an EncryptionError with the given reason.
func NewEncryptionError(reason string) *EncryptionError {
	return &EncryptionError{Reason: reason}
}

// IsOperationTimeout reports whether err is a WSManFaultError carrying
// CodeOperationTimeout, the condition the shell receive loop absorbs.
func IsOperationTimeout(err error) bool {
	var f *WSManFaultError
	if errors.As(err, &f) {
		return f.IsTimeout()
	}
	return false
}

// ParseFault parses a SOAP response and returns a typed fault error if
// the body contains a Fault element: a *WSManFaultError when a
// WSManFault/@Code detail is present, else a *SOAPFaultError. Returns
// nil if the response contains no fault.
func ParseFault(data []byte) (error, error) {
	if !strings.Contains(string(data), ":Fault") {
		return nil, nil
	}

	var env faultEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse fault: %w", err)
	}

	if env.Body.Fault.Code.Value == "" {
		return nil, nil
	}

	code := env.Body.Fault.Code.Value
	if sub := env.Body.Fault.Code.Subcode.Value; sub != "" {
		code = sub
	}
	reason := env.Body.Fault.Reason.Text

	if env.Body.Fault.Detail.WSManFault.Code != 0 {
		return &WSManFaultError{
			Code:      code,
			Reason:    reason,
			WSManCode: env.Body.Fault.Detail.WSManFault.Code,
			Machine:   env.Body.Fault.Detail.WSManFault.Machine,
			Message:   env.Body.Fault.Detail.WSManFault.Message,
		}, nil
	}

	return &SOAPFaultError{Code: code, Reason: reason}, nil
}

// CheckFault parses a response and returns an error if it contains a
// fault, nil otherwise.
func CheckFault(data []byte) error {
	fault, err := ParseFault(data)
	if err != nil {
		return err
	}
	return fault
}

// faultEnvelope is the XML structure used to parse SOAP faults out of
// a raw response body.
type faultEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault struct {
			Code struct {
				Value   string `xml:"Value"`
				Subcode struct {
					Value string `xml:"Value"`
				} `xml:"Subcode"`
			} `xml:"Code"`
			Reason struct {
				Text string `xml:"Text"`
			} `xml:"Reason"`
			Detail struct {
				WSManFault struct {
					Code    int    `xml:"Code,attr"`
					Machine string `xml:"Machine,attr"`
					Message string `xml:"Message"`
				} `xml:"WSManFault"`
			} `xml:"Detail"`
		} `xml:"Fault"`
	} `xml:"Body"`
}
