package wsman

import (
	"encoding/xml"
	"strconv"
	"time"
)

// Envelope represents a SOAP 1.2 envelope for WS-Management messages.
type Envelope struct {
	XMLName xml.Name `xml:"s:Envelope"`

	// Namespace declarations
	NsSoap    string `xml:"xmlns:s,attr"`
	NsAddr    string `xml:"xmlns:a,attr"`
	NsWsman   string `xml:"xmlns:w,attr"`
	NsMsWsman string `xml:"xmlns:p,attr"`
	NsShellNs string `xml:"xmlns:rsp,attr,omitempty"`
	NsXsiAttr string `xml:"xmlns:xsi,attr,omitempty"`

	Header *Header `xml:"s:Header"`
	Body   *Body   `xml:"s:Body"`
}

// Header represents the SOAP header containing WS-Addressing and WS-Management headers.
type Header struct {
	// WS-Addressing headers
	Action    *ActionHeader `xml:"a:Action,omitempty"`
	To        string        `xml:"a:To,omitempty"`
	MessageID string        `xml:"a:MessageID,omitempty"`
	ReplyTo   *ReplyTo      `xml:"a:ReplyTo,omitempty"`

	// WS-Management headers
	ResourceURI      *ResourceURIHeader     `xml:"w:ResourceURI,omitempty"`
	MaxEnvelopeSize  *MaxEnvelopeSizeHeader `xml:"w:MaxEnvelopeSize,omitempty"`
	OperationTimeout string                 `xml:"w:OperationTimeout,omitempty"`
	Locale           *Locale                `xml:"w:Locale,omitempty"`
	DataLocale       *DataLocale            `xml:"p:DataLocale,omitempty"`
	SessionID        string                 `xml:"p:SessionId,omitempty"`

	// Shell-specific headers
	SelectorSet *SelectorSet `xml:"w:SelectorSet,omitempty"`
	OptionSet   *OptionSet   `xml:"w:OptionSet,omitempty"`
}

// ActionHeader represents Action element with mustUnderstand attribute.
type ActionHeader struct {
	MustUnderstand string `xml:"s:mustUnderstand,attr,omitempty"`
	Value          string `xml:",chardata"`
}

// ResourceURIHeader represents ResourceURI element with mustUnderstand attribute.
type ResourceURIHeader struct {
	MustUnderstand string `xml:"s:mustUnderstand,attr,omitempty"`
	Value          string `xml:",chardata"`
}

// MaxEnvelopeSizeHeader represents MaxEnvelopeSize element with mustUnderstand attribute.
type MaxEnvelopeSizeHeader struct {
	MustUnderstand string `xml:"s:mustUnderstand,attr,omitempty"`
	Value          int    `xml:",chardata"`
}

// Locale representing xml:lang attribute
type Locale struct {
	MustUnderstand bool   `xml:"s:mustUnderstand,attr,omitempty"`
	Lang           string `xml:"xml:lang,attr,omitempty"`
}

// DataLocale representing xml:lang attribute
type DataLocale struct {
	MustUnderstand bool   `xml:"s:mustUnderstand,attr,omitempty"`
	Lang           string `xml:"xml:lang,attr,omitempty"`
}

// ReplyTo represents the WS-Addressing ReplyTo element.
type ReplyTo struct {
	Address *AddressHeader `xml:"a:Address"`
}

// AddressHeader represents Address element with mustUnderstand attribute.
type AddressHeader struct {
	MustUnderstand string `xml:"s:mustUnderstand,attr,omitempty"`
	Value          string `xml:",chardata"`
}

// SelectorSet contains selectors for targeting specific resources.
type SelectorSet struct {
	Selectors []Selector `xml:"w:Selector"`
}

// OptionSet contains options for the operation.
type OptionSet struct {
	MustUnderstand string   `xml:"s:mustUnderstand,attr,omitempty"`
	Options        []Option `xml:"w:Option"`
}

// Option represents a single option.
type Option struct {
	MustComply string `xml:"MustComply,attr,omitempty"`
	Name       string `xml:"Name,attr"`
	Value      string `xml:",chardata"`
}

// Body represents the SOAP body.
type Body struct {
	Content []byte `xml:",innerxml"`
}

// NewEnvelope creates a new SOAP envelope with required namespace declarations.
func NewEnvelope() *Envelope {
	return &Envelope{
		NsSoap:    NsSoap,
		NsAddr:    NsAddressing,
		NsWsman:   NsWsman,
		NsMsWsman: NsWsmanMicrosoft,
		Header:    &Header{},
		Body:      &Body{},
	}
}

// WithAction sets the WS-Addressing Action header.
func (e *Envelope) WithAction(action string) *Envelope {
	e.Header.Action = &ActionHeader{
		MustUnderstand: "true",
		Value:          action,
	}
	return e
}

// WithTo sets the WS-Addressing To header (the endpoint URL).
func (e *Envelope) WithTo(to string) *Envelope {
	e.Header.To = to
	return e
}

// WithMessageID sets the WS-Addressing MessageID header.
func (e *Envelope) WithMessageID(messageID string) *Envelope {
	e.Header.MessageID = messageID
	return e
}

// WithReplyTo sets the WS-Addressing ReplyTo header.
func (e *Envelope) WithReplyTo(address string) *Envelope {
	e.Header.ReplyTo = &ReplyTo{
		Address: &AddressHeader{
			MustUnderstand: "true",
			Value:          address,
		},
	}
	return e
}

// WithResourceURI sets the WS-Management ResourceURI header.
func (e *Envelope) WithResourceURI(uri string) *Envelope {
	e.Header.ResourceURI = &ResourceURIHeader{
		MustUnderstand: "true",
		Value:          uri,
	}
	return e
}

// WithMaxEnvelopeSize sets the WS-Management MaxEnvelopeSize header.
func (e *Envelope) WithMaxEnvelopeSize(size int) *Envelope {
	e.Header.MaxEnvelopeSize = &MaxEnvelopeSizeHeader{
		MustUnderstand: "true",
		Value:          size,
	}
	return e
}

// WithOperationTimeout sets the WS-Management OperationTimeout header
// from a raw ISO-8601 duration string (e.g., "PT60S").
func (e *Envelope) WithOperationTimeout(timeout string) *Envelope {
	e.Header.OperationTimeout = timeout
	return e
}

// WithOperationTimeoutDuration sets OperationTimeout from a
// time.Duration, serialized as "PT<seconds>S" per §4.3. Sub-second
// precision is dropped, matching the source's accept-any-timedelta,
// serialize-to-whole-seconds contract.
func (e *Envelope) WithOperationTimeoutDuration(d time.Duration) *Envelope {
	return e.WithOperationTimeout(formatOperationTimeout(d))
}

func formatOperationTimeout(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return "PT" + strconv.FormatInt(secs, 10) + "S"
}

// WithShellNamespace adds the Windows Shell namespace to the envelope.
func (e *Envelope) WithShellNamespace() *Envelope {
	e.NsShellNs = NsShell
	return e
}

// WithSelector adds a selector to the SelectorSet.
func (e *Envelope) WithSelector(name, value string) *Envelope {
	if e.Header.SelectorSet == nil {
		e.Header.SelectorSet = &SelectorSet{}
	}
	e.Header.SelectorSet.Selectors = append(e.Header.SelectorSet.Selectors,
		Selector{Name: name, Value: value})
	return e
}

// WithOption adds an option to the OptionSet.
func (e *Envelope) WithOption(name, value string) *Envelope {
	if e.Header.OptionSet == nil {
		e.Header.OptionSet = &OptionSet{
			MustUnderstand: "true",
		}
	}
	e.Header.OptionSet.Options = append(e.Header.OptionSet.Options,
		Option{Name: name, Value: value})
	return e
}

// WithOptionMustComply adds an option with MustComply="true" to the OptionSet.
func (e *Envelope) WithOptionMustComply(name, value string) *Envelope {
	if e.Header.OptionSet == nil {
		e.Header.OptionSet = &OptionSet{
			MustUnderstand: "true",
		}
	}
	e.Header.OptionSet.Options = append(e.Header.OptionSet.Options,
		Option{MustComply: "true", Name: name, Value: value})
	return e
}

// WithBody sets the SOAP body content.
func (e *Envelope) WithBody(content []byte) *Envelope {
	e.Body.Content = content
	return e
}

// WithSessionID sets the WS-Management SessionId header.
func (e *Envelope) WithSessionID(sessionID string) *Envelope {
	e.Header.SessionID = sessionID
	return e
}

// WithLocale sets the WS-Management Locale header.
func (e *Envelope) WithLocale(lang string) *Envelope {
	e.Header.Locale = &Locale{
		Lang:           lang,
		MustUnderstand: false,
	}
	return e
}

// WithDataLocale sets the WS-Management DataLocale header.
func (e *Envelope) WithDataLocale(lang string) *Envelope {
	e.Header.DataLocale = &DataLocale{
		Lang:           lang,
		MustUnderstand: false,
	}
	return e
}

// Action returns the WS-Addressing Action header value, or "" if unset.
func (e *Envelope) Action() string {
	if e.Header == nil || e.Header.Action == nil {
		return ""
	}
	return e.Header.Action.Value
}

// To returns the WS-Addressing To header value.
func (e *Envelope) To() string {
	if e.Header == nil {
		return ""
	}
	return e.Header.To
}

// ResourceURI returns the WS-Management ResourceURI header value.
func (e *Envelope) ResourceURI() string {
	if e.Header == nil || e.Header.ResourceURI == nil {
		return ""
	}
	return e.Header.ResourceURI.Value
}

// ReplyToAddress returns the WS-Addressing ReplyTo/Address value.
func (e *Envelope) ReplyToAddress() string {
	if e.Header == nil || e.Header.ReplyTo == nil || e.Header.ReplyTo.Address == nil {
		return ""
	}
	return e.Header.ReplyTo.Address.Value
}

// MessageID returns the WS-Addressing MessageID header value.
func (e *Envelope) MessageID() string {
	if e.Header == nil {
		return ""
	}
	return e.Header.MessageID
}

// OperationTimeout returns the raw OperationTimeout header text.
func (e *Envelope) OperationTimeout() string {
	if e.Header == nil {
		return ""
	}
	return e.Header.OperationTimeout
}

// MaxEnvelopeSize returns the parsed MaxEnvelopeSize header value, and
// whether the header was present.
func (e *Envelope) MaxEnvelopeSize() (int, bool) {
	if e.Header == nil || e.Header.MaxEnvelopeSize == nil {
		return 0, false
	}
	return e.Header.MaxEnvelopeSize.Value, true
}

// Selectors returns a read-only name→value view of the SelectorSet.
// Duplicate selector names keep the last value, matching a map view
// over the underlying ordered list.
func (e *Envelope) Selectors() map[string]string {
	out := map[string]string{}
	if e.Header == nil || e.Header.SelectorSet == nil {
		return out
	}
	for _, s := range e.Header.SelectorSet.Selectors {
		out[s.Name] = s.Value
	}
	return out
}

// WithSelectors bulk-replaces the SelectorSet from a name→value map.
func (e *Envelope) WithSelectors(selectors map[string]string) *Envelope {
	e.Header.SelectorSet = nil
	for name, value := range selectors {
		e.WithSelector(name, value)
	}
	return e
}

// Options returns a read-only name→value view of the OptionSet.
func (e *Envelope) Options() map[string]string {
	out := map[string]string{}
	if e.Header == nil || e.Header.OptionSet == nil {
		return out
	}
	for _, o := range e.Header.OptionSet.Options {
		out[o.Name] = o.Value
	}
	return out
}

// WithOptions bulk-replaces the OptionSet from a name→value map.
func (e *Envelope) WithOptions(options map[string]string) *Envelope {
	e.Header.OptionSet = nil
	for name, value := range options {
		e.WithOption(name, value)
	}
	return e
}

// Locale returns the Locale header's xml:lang value.
func (e *Envelope) Locale() string {
	if e.Header == nil || e.Header.Locale == nil {
		return ""
	}
	return e.Header.Locale.Lang
}

// DataLocale returns the DataLocale header's xml:lang value.
func (e *Envelope) DataLocale() string {
	if e.Header == nil || e.Header.DataLocale == nil {
		return ""
	}
	return e.Header.DataLocale.Lang
}

// Marshal serializes the envelope to XML.
func (e *Envelope) Marshal() ([]byte, error) {
	return xml.Marshal(e)
}

// MarshalIndent serializes the envelope to indented XML.
func (e *Envelope) MarshalIndent(prefix, indent string) ([]byte, error) {
	return xml.MarshalIndent(e, prefix, indent)
}

const xmlDecl = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// MarshalDocument serializes the envelope with a leading UTF-8 XML
// declaration, as required for the request body sent over the wire.
func (e *Envelope) MarshalDocument() ([]byte, error) {
	body, err := e.Marshal()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(xmlDecl)+len(body))
	out = append(out, xmlDecl...)
	out = append(out, body...)
	return out, nil
}
