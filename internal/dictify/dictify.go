// Package dictify coerces the typed child elements of a CIM/WMI
// response (a Get result or a method's out-parameters) into Go values,
// following the source's "try boolean, then integer, then string"
// convention (§4.9). Repeated children with the same local name
// accumulate into an ordered list.
package dictify

import (
	"encoding/xml"
	"strconv"
)

// node mirrors one XML element generically: its local name, any
// xsi:nil attribute, and its text content. It is the minimal shape
// registry and services need to walk a raw Get/Invoke response body.
type node struct {
	XMLName xml.Name
	Nil     string `xml:"http://www.w3.org/2001/XMLSchema-instance nil,attr"`
	Text    string `xml:",chardata"`
}

// Dictify parses the top-level children of a CIM instance or method
// response body into a name→value(s) map. A name that appears once
// maps to a single coerced value; a name that repeats maps to a
// []any of coerced values, preserving document order.
func Dictify(body []byte) (map[string]any, error) {
	var doc struct {
		Nodes []node `xml:",any"`
	}
	if err := xml.Unmarshal(wrap(body), &doc); err != nil {
		return nil, err
	}

	out := map[string]any{}
	counts := map[string]int{}
	for _, n := range doc.Nodes {
		counts[n.XMLName.Local]++
	}

	for _, n := range doc.Nodes {
		name := n.XMLName.Local
		value := Coerce(n.Nil == "true", n.Text)
		if counts[name] > 1 {
			if existing, ok := out[name].([]any); ok {
				out[name] = append(existing, value)
			} else {
				out[name] = []any{value}
			}
			continue
		}
		out[name] = value
	}
	return out, nil
}

// wrap ensures body parses as a single well-formed document by giving
// its children a synthetic root, since callers hand us inner XML
// (the already-unwrapped contents of a response Body child).
func wrap(body []byte) []byte {
	out := make([]byte, 0, len(body)+40)
	out = append(out, []byte(`<d xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)...)
	out = append(out, body...)
	out = append(out, []byte(`</d>`)...)
	return out
}

// Coerce applies the §4.9/§8 coercion law to one element's text: nil
// when isNil, false/true for the exact literals "false"/"true", the
// parsed integer for a pure decimal (no sign-only or whitespace
// input), otherwise the string itself.
func Coerce(isNil bool, text string) any {
	if isNil {
		return nil
	}
	switch text {
	case "true":
		return true
	case "false":
		return false
	}
	if isPureDecimal(text) {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n
		}
	}
	return text
}

func isPureDecimal(s string) bool {
	if s == "" {
		return false
	}
	start := 0
	if s[0] == '-' {
		start = 1
	}
	if start >= len(s) {
		return false
	}
	for i := start; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String returns v as a string, or "" if v is nil or not a string.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Int64 returns v as an int64, or 0 if v is nil or not an integer.
func Int64(v any) int64 {
	n, _ := v.(int64)
	return n
}

// Bool returns v as a bool, or false if v is nil or not a boolean.
func Bool(v any) bool {
	b, _ := v.(bool)
	return b
}

// StringSlice flattens a repeated-element value (as returned by
// Dictify for a name that occurred more than once) into a []string,
// coercing each element with String. A single, non-repeated value is
// returned as a one-element slice.
func StringSlice(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, String(e))
		}
		return out
	default:
		return []string{String(v)}
	}
}
