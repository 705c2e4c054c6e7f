package wsman

import (
	"context"
	"encoding/xml"
	"fmt"
)

const defaultMaxElements = 100

// Enumerator is a pull-based WS-Enumeration iterator over a resource's
// instances, modeled as a Go iterator (Next/Close) rather than an
// async generator (see REDESIGN FLAGS). It is created by
// Client.Enumerate, advances via internal Enumerate/Pull calls, and
// must be Close'd if abandoned before exhaustion so the server-side
// context is released (§4.5, §8).
type Enumerator struct {
	client      *Client
	resourceURI string
	selectors   map[string]string
	maxElements int

	started  bool
	finished bool
	context  string

	items []rawItem
	idx   int
}

// Enumerate begins an enumeration of resourceURI's instances,
// identified by the given selectors (may be nil). maxElements
// defaults to 100 when <= 0.
func (c *Client) Enumerate(resourceURI string, selectors map[string]string, maxElements int) *Enumerator {
	if maxElements <= 0 {
		maxElements = defaultMaxElements
	}
	return &Enumerator{
		client:      c,
		resourceURI: resourceURI,
		selectors:   selectors,
		maxElements: maxElements,
	}
}

// Next advances the enumerator, returning the next item's field-level
// content (the instance document's wrapping element stripped off, the
// shape dictify expects). ok is false once the sequence is exhausted,
// with err nil on clean completion.
func (e *Enumerator) Next(ctx context.Context) (item []byte, ok bool, err error) {
	for e.idx >= len(e.items) {
		if e.finished {
			return nil, false, nil
		}
		if err := e.fetch(ctx); err != nil {
			return nil, false, err
		}
	}
	item = e.items[e.idx].Inner
	e.idx++
	return item, true, nil
}

func (e *Enumerator) fetch(ctx context.Context) error {
	if !e.started {
		return e.doEnumerate(ctx)
	}
	return e.doPull(ctx)
}

func (e *Enumerator) doEnumerate(ctx context.Context) error {
	e.started = true

	env := e.client.baseEnvelope(ActionEnumerate, e.resourceURI)
	for name, value := range e.selectors {
		env.WithSelector(name, value)
	}
	body := fmt.Sprintf(
		`<n:Enumerate xmlns:n="%s"><w:OptimizeEnumeration xmlns:w="%s"/><n:MaxElements>%d</n:MaxElements></n:Enumerate>`,
		NsEnumeration, NsWsman, e.maxElements)
	env.WithBody([]byte(body))

	respBody, err := e.client.sendEnvelope(ctx, env)
	if err != nil {
		return fmt.Errorf("enumerate: %w", err)
	}

	var resp enumerateResponse
	if err := xml.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("parse enumerate response: %w", err)
	}
	return e.absorb(resp.Body.EnumerateResponse.EnumerationContext, resp.Body.EnumerateResponse.Items.Items, resp.Body.EnumerateResponse.EndOfSequence != nil)
}

func (e *Enumerator) doPull(ctx context.Context) error {
	if e.context == "" {
		return NewProtocolError("EnumerationContext missing from response")
	}

	env := e.client.baseEnvelope(ActionPull, e.resourceURI)
	for name, value := range e.selectors {
		env.WithSelector(name, value)
	}
	body := fmt.Sprintf(
		`<n:Pull xmlns:n="%s"><n:EnumerationContext>%s</n:EnumerationContext><n:MaxElements>%d</n:MaxElements></n:Pull>`,
		NsEnumeration, e.context, e.maxElements)
	env.WithBody([]byte(body))

	respBody, err := e.client.sendEnvelope(ctx, env)
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}

	var resp pullResponse
	if err := xml.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("parse pull response: %w", err)
	}
	return e.absorb(resp.Body.PullResponse.EnumerationContext, resp.Body.PullResponse.Items.Items, resp.Body.PullResponse.EndOfSequence != nil)
}

func (e *Enumerator) absorb(context string, items []rawItem, endOfSequence bool) error {
	e.context = context
	e.items = items
	e.idx = 0
	if endOfSequence {
		e.finished = true
	} else if context == "" {
		return NewProtocolError("EnumerationContext missing from response")
	}
	return nil
}

// Close abandons the enumeration. If the sequence was not already
// exhausted by EndOfSequence, it issues exactly one Release with the
// last observed context and swallows any error from it (§7, §8).
func (e *Enumerator) Close(ctx context.Context) error {
	if e.finished || e.context == "" {
		return nil
	}
	env := e.client.baseEnvelope(ActionRelease, e.resourceURI)
	for name, value := range e.selectors {
		env.WithSelector(name, value)
	}
	body := fmt.Sprintf(`<n:Release xmlns:n="%s"><n:EnumerationContext>%s</n:EnumerationContext></n:Release>`, NsEnumeration, e.context)
	env.WithBody([]byte(body))

	_, _ = e.client.sendEnvelope(ctx, env)
	e.finished = true
	return nil
}

// rawItem keeps the inner XML of one enumerated item, i.e. the item
// with its wrapping element stripped off.
type rawItem struct {
	Inner []byte `xml:",innerxml"`
}

type itemsElement struct {
	Items []rawItem `xml:",any"`
}

type enumerateResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		EnumerateResponse struct {
			EnumerationContext string        `xml:"EnumerationContext"`
			Items              itemsElement  `xml:"Items"`
			EndOfSequence      *struct{}     `xml:"EndOfSequence"`
		} `xml:"EnumerateResponse"`
	} `xml:"Body"`
}

type pullResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		PullResponse struct {
			EnumerationContext string       `xml:"EnumerationContext"`
			Items              itemsElement `xml:"Items"`
			EndOfSequence      *struct{}    `xml:"EndOfSequence"`
		} `xml:"PullResponse"`
	} `xml:"Body"`
}
