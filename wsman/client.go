package wsman

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smnsjas/go-winrm/wsman/transport"
)

const (
	defaultMaxEnvelopeSize = 153600
	defaultLocale          = "en-US"
	defaultOperationTO     = 60 * time.Second
)

// Client is a WSMan client for communicating with WinRM endpoints. It
// builds and sends SOAP/WSMan envelopes over an HTTP(S) transport,
// decoding SOAP faults into the typed errors in errors.go.
type Client struct {
	endpoint  string
	transport *transport.HTTPTransport
	sessionID string
}

// NewClient creates a new WSMan client bound to endpoint, using tr for
// the underlying HTTP(S) transport (which carries authentication).
func NewClient(endpoint string, tr *transport.HTTPTransport) *Client {
	return &Client{
		endpoint:  endpoint,
		transport: tr,
		sessionID: "uuid:" + strings.ToUpper(uuid.New().String()),
	}
}

// SetSessionID overrides the WS-Management SessionId header sent on
// every subsequent request.
func (c *Client) SetSessionID(sessionID string) {
	c.sessionID = sessionID
}

func newMessageID() string {
	return "uuid:" + strings.ToUpper(uuid.New().String())
}

func (c *Client) baseEnvelope(action, resourceURI string) *Envelope {
	return NewEnvelope().
		WithAction(action).
		WithTo(c.endpoint).
		WithResourceURI(resourceURI).
		WithMessageID(newMessageID()).
		WithReplyTo(AddressAnonymous).
		WithSessionID(c.sessionID).
		WithLocale(defaultLocale).
		WithDataLocale(defaultLocale).
		WithMaxEnvelopeSize(defaultMaxEnvelopeSize).
		WithOperationTimeoutDuration(defaultOperationTO)
}

// ReceiveResult carries the outcome of one Receive poll: any stdout/
// stderr bytes decoded in document order, whether each stream reported
// End="true", and the command-state transition if one was present.
type ReceiveResult struct {
	Stdout    []byte
	Stderr    []byte
	StdoutEnd bool
	StderrEnd bool

	CommandState string
	ExitCode     int
	Done         bool
}

// Create issues a WS-Transfer Create against resourceURI, attaching
// options as the request's OptionSet (MustComply for "protocolversion",
// matching the PSRP/WinRS convention of requiring server compliance on
// that one option) and body as the request payload. Returns the
// server-assigned EndpointReference.
func (c *Client) Create(ctx context.Context, resourceURI string, options map[string]string, body []byte) (*EndpointReference, error) {
	env := c.baseEnvelope(ActionCreate, resourceURI).WithShellNamespace()
	for name, value := range options {
		if name == "protocolversion" {
			env.WithOptionMustComply(name, value)
		} else {
			env.WithOption(name, value)
		}
	}
	env.WithBody(body)

	respBody, err := c.sendEnvelope(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	var resp createResponse
	if err := xml.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse create response: %w", err)
	}
	if len(resp.Body.ResourceCreated.ReferenceParameters.SelectorSet.Selectors) == 0 {
		return nil, NewProtocolError("CreateShell response missing ShellId")
	}

	epr := &EndpointReference{
		Address:     resp.Body.ResourceCreated.Address,
		ResourceURI: resp.Body.ResourceCreated.ReferenceParameters.ResourceURI,
		Selectors:   resp.Body.ResourceCreated.ReferenceParameters.SelectorSet.Selectors,
	}
	if epr.ResourceURI == "" {
		epr.ResourceURI = resourceURI
	}
	return epr, nil
}

// Command issues a Command request against epr, carrying options (e.g.
// WINRS_CONSOLEMODE_STDIN, WINRS_SKIP_CMD_SHELL) in the OptionSet and
// body as the <rsp:CommandLine> payload. Returns the server-assigned
// CommandId.
func (c *Client) Command(ctx context.Context, epr *EndpointReference, options map[string]string, body []byte) (string, error) {
	env := c.baseEnvelope(ActionCommand, epr.ResourceURI).WithShellNamespace()
	for name, value := range options {
		env.WithOption(name, value)
	}
	for _, s := range epr.Selectors {
		env.WithSelector(s.Name, s.Value)
	}
	env.WithBody(body)

	respBody, err := c.sendEnvelope(ctx, env)
	if err != nil {
		return "", fmt.Errorf("command: %w", err)
	}

	var resp commandResponse
	if err := xml.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("parse command response: %w", err)
	}
	if resp.Body.CommandResponse.CommandID == "" {
		return "", NewProtocolError("CommandResponse missing CommandId")
	}
	return resp.Body.CommandResponse.CommandID, nil
}

// Send posts one chunk of data to a command's input stream. end marks
// the final chunk with Stream/@End="true".
func (c *Client) Send(ctx context.Context, epr *EndpointReference, commandID, stream string, data []byte, end bool) error {
	encoded := base64.StdEncoding.EncodeToString(data)

	env := c.baseEnvelope(ActionSend, epr.ResourceURI).WithShellNamespace()
	for _, s := range epr.Selectors {
		env.WithSelector(s.Name, s.Value)
	}

	endAttr := ""
	if end {
		endAttr = ` End="true"`
	}
	streamNode := `<rsp:Stream Name="` + stream + `" CommandId="` + commandID + `"` + endAttr + `>` + encoded + `</rsp:Stream>`
	env.WithBody([]byte(`<rsp:Send xmlns:rsp="` + NsShell + `">` + streamNode + `</rsp:Send>`))

	if _, err := c.sendEnvelope(ctx, env); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Receive polls a command's output streams. desiredStreams is a
// space-joined subset of "stdout"/"stderr". timeout sets the request's
// OperationTimeout so the server faults with CodeOperationTimeout when
// no data arrives within the window; the caller (the winrs receive
// loop) is responsible for absorbing that fault.
func (c *Client) Receive(ctx context.Context, epr *EndpointReference, commandID, desiredStreams string, timeout time.Duration) (*ReceiveResult, error) {
	env := c.baseEnvelope(ActionReceive, epr.ResourceURI).
		WithOperationTimeoutDuration(timeout).
		WithOption("WSMAN_CMDSHELL_OPTION_KEEPALIVE", "True").
		WithShellNamespace()
	for _, s := range epr.Selectors {
		env.WithSelector(s.Name, s.Value)
	}

	body := `<rsp:Receive xmlns:rsp="` + NsShell + `"><rsp:DesiredStream CommandId="` + commandID + `">` + desiredStreams + `</rsp:DesiredStream></rsp:Receive>`
	respBody, err := c.sendEnvelope(ctx, env.WithBody([]byte(body)))
	if err != nil {
		return nil, err
	}

	var resp receiveResponse
	if err := xml.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse receive response: %w", err)
	}

	result := &ReceiveResult{}
	for _, stream := range resp.Body.ReceiveResponse.Streams {
		decoded, decErr := base64.StdEncoding.DecodeString(stream.Content)
		if decErr != nil {
			return nil, NewProtocolError("ReceiveResponse stream content is not valid base64")
		}
		switch stream.Name {
		case "stdout":
			result.Stdout = append(result.Stdout, decoded...)
			if stream.End == "true" {
				result.StdoutEnd = true
			}
		case "stderr":
			result.Stderr = append(result.Stderr, decoded...)
			if stream.End == "true" {
				result.StderrEnd = true
			}
		default:
			// Any other stream name is silently ignored, matching the
			// source's literal stdout/stderr keying.
		}
	}

	result.CommandState = resp.Body.ReceiveResponse.CommandState.State
	if resp.Body.ReceiveResponse.CommandState.State == CommandStateDone {
		result.Done = true
		if resp.Body.ReceiveResponse.CommandState.ExitCode != nil {
			result.ExitCode = *resp.Body.ReceiveResponse.CommandState.ExitCode
		}
	}

	return result, nil
}

// Signal posts a control signal (ctrl_c, Terminate) to a running
// command.
func (c *Client) Signal(ctx context.Context, epr *EndpointReference, commandID, code string) error {
	env := c.baseEnvelope(ActionSignal, epr.ResourceURI).WithShellNamespace()
	for _, s := range epr.Selectors {
		env.WithSelector(s.Name, s.Value)
	}
	env.WithBody([]byte(`<rsp:Signal xmlns:rsp="` + NsShell + `" CommandId="` + commandID + `"><rsp:Code>` + code + `</rsp:Code></rsp:Signal>`))

	if _, err := c.sendEnvelope(ctx, env); err != nil {
		return fmt.Errorf("signal: %w", err)
	}
	return nil
}

// Delete issues a WS-Transfer Delete against epr, destroying the
// resource (typically a shell).
func (c *Client) Delete(ctx context.Context, epr *EndpointReference) error {
	env := NewEnvelope().
		WithAction(ActionDelete).
		WithTo(c.endpoint).
		WithResourceURI(epr.ResourceURI).
		WithMessageID(newMessageID()).
		WithReplyTo(AddressAnonymous).
		WithSessionID(c.sessionID)
	for _, s := range epr.Selectors {
		env.WithSelector(s.Name, s.Value)
	}

	if _, err := c.sendEnvelope(ctx, env); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// IdentifyResult is the decoded body of a WSMan Identify response.
type IdentifyResult struct {
	ProtocolVersion  string
	ProductVendor    string
	ProductVersion   string
	SecurityProfiles []string
}

// Identify sends the WSMan Identify request, which carries no
// ResourceURI, SelectorSet or session headers.
func (c *Client) Identify(ctx context.Context) (*IdentifyResult, error) {
	env := NewEnvelope().
		WithAction(ActionIdentify).
		WithTo(c.endpoint).
		WithMessageID(newMessageID()).
		WithReplyTo(AddressAnonymous)
	env.WithBody([]byte(`<wsmid:Identify xmlns:wsmid="` + NsWsmanIdentity + `"/>`))

	respBody, err := c.sendEnvelope(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}

	var resp identifyResponse
	if err := xml.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse identify response: %w", err)
	}

	return &IdentifyResult{
		ProtocolVersion:  resp.Body.IdentifyResponse.ProtocolVersion,
		ProductVendor:    resp.Body.IdentifyResponse.ProductVendor,
		ProductVersion:   resp.Body.IdentifyResponse.ProductVersion,
		SecurityProfiles: resp.Body.IdentifyResponse.SecurityProfiles,
	}, nil
}

// Get issues a WS-Transfer Get against resourceURI with selectors
// pinpointing the instance, returning the raw inner XML of the first
// child of Body (the requested CIM instance document).
func (c *Client) Get(ctx context.Context, resourceURI string, selectors map[string]string) ([]byte, error) {
	env := c.baseEnvelope(ActionGet, resourceURI)
	for name, value := range selectors {
		env.WithSelector(name, value)
	}

	respBody, err := c.sendEnvelope(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	inner, err := firstBodyChild(respBody)
	if err != nil {
		return nil, err
	}
	return inner, nil
}

// Invoke calls a WMI method on resourceURI (identified by selectors)
// via the {ResourceURI}/<MethodName> action, with params as the
// method's input-parameter element. Returns the raw inner XML of the
// response body, which callers dictify for out-parameters and
// ReturnValue.
func (c *Client) Invoke(ctx context.Context, resourceURI string, selectors map[string]string, method string, params []byte) ([]byte, error) {
	env := c.baseEnvelope(resourceURI+"/"+method, resourceURI)
	for name, value := range selectors {
		env.WithSelector(name, value)
	}
	env.WithBody(params)

	respBody, err := c.sendEnvelope(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", method, err)
	}

	return firstBodyChild(respBody)
}

// firstBodyChild returns the inner XML of Body's first child's first
// children, i.e. the field-level content of the CIM instance or
// method-output element (<Win32_Service>, <GetDWORDValue_OUTPUT>)
// wrapping it, which is the shape dictify and the typed response
// structs expect.
func firstBodyChild(respBody []byte) ([]byte, error) {
	var doc struct {
		Body struct {
			Inner []byte `xml:",innerxml"`
		} `xml:"Body"`
	}
	if err := xml.Unmarshal(respBody, &doc); err != nil {
		return nil, fmt.Errorf("parse response body: %w", err)
	}
	if len(doc.Body.Inner) == 0 {
		return nil, NewProtocolError("response Body has no child element")
	}
	return unwrapElement(doc.Body.Inner)
}

// unwrapElement parses raw as a single XML element and returns its
// inner XML, discarding the element's own tag. Used to peel the
// CIM instance/method-output wrapper off a Get/Invoke payload before
// handing its fields to dictify.
func unwrapElement(raw []byte) ([]byte, error) {
	var el struct {
		Inner []byte `xml:",innerxml"`
	}
	if err := xml.Unmarshal(raw, &el); err != nil {
		return nil, fmt.Errorf("parse response element: %w", err)
	}
	return el.Inner, nil
}

// sendEnvelope marshals and sends a SOAP envelope, returning the
// response body. WinRM delivers SOAP/WSMan faults over HTTP 500 (and
// occasionally other non-2xx statuses), so a fault is checked for in
// the response body regardless of whether the POST itself reported an
// HTTP-status error; only a body with no fault in it falls through to
// a generic TransportError.
func (c *Client) sendEnvelope(ctx context.Context, env *Envelope) ([]byte, error) {
	body, err := env.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	respBody, postErr := c.transport.Post(ctx, c.endpoint, body)
	if postErr != nil {
		var statusErr *transport.HTTPStatusError
		if !errors.As(postErr, &statusErr) {
			return nil, NewTransportError("POST", postErr)
		}
		if faultErr := CheckFault(statusErr.Body); faultErr != nil {
			return nil, faultErr
		}
		return nil, NewTransportError("POST", postErr)
	}

	if faultErr := CheckFault(respBody); faultErr != nil {
		return nil, faultErr
	}

	return respBody, nil
}

// CloseIdleConnections closes any idle connections in the underlying
// transport, forcing a fresh authentication handshake for subsequent
// requests.
func (c *Client) CloseIdleConnections() {
	c.transport.CloseIdleConnections()
}

// Response types for XML parsing.

type createResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		ResourceCreated struct {
			Address             string `xml:"Address"`
			ReferenceParameters struct {
				ResourceURI string `xml:"ResourceURI"`
				SelectorSet struct {
					Selectors []Selector `xml:"Selector"`
				} `xml:"SelectorSet"`
			} `xml:"ReferenceParameters"`
		} `xml:"ResourceCreated"`
	} `xml:"Body"`
}

type commandResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		CommandResponse struct {
			CommandID string `xml:"CommandId"`
		} `xml:"http://schemas.microsoft.com/wbem/wsman/1/windows/shell CommandResponse"`
	} `xml:"Body"`
}

type receiveResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		ReceiveResponse struct {
			Streams []struct {
				Name      string `xml:"Name,attr"`
				CommandID string `xml:"CommandId,attr"`
				End       string `xml:"End,attr"`
				Content   string `xml:",chardata"`
			} `xml:"Stream"`
			CommandState struct {
				CommandID string `xml:"CommandId,attr"`
				State     string `xml:"State,attr"`
				ExitCode  *int   `xml:"ExitCode"`
			} `xml:"CommandState"`
		} `xml:"ReceiveResponse"`
	} `xml:"Body"`
}

type identifyResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		IdentifyResponse struct {
			ProtocolVersion  string `xml:"ProtocolVersion"`
			ProductVendor    string `xml:"ProductVendor"`
			ProductVersion   string `xml:"ProductVersion"`
			SecurityProfiles []string `xml:"SecurityProfiles>SecurityProfileName"`
		} `xml:"IdentifyResponse"`
	} `xml:"Body"`
}
