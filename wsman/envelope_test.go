package wsman

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"
)

// TestEnvelopeBuilder_BasicStructure verifies the envelope produces valid SOAP XML.
func TestEnvelopeBuilder_BasicStructure(t *testing.T) {
	env := NewEnvelope()

	xmlBytes, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}

	xmlStr := string(xmlBytes)

	// Verify SOAP envelope structure
	if !strings.Contains(xmlStr, "Envelope") {
		t.Error("missing Envelope element")
	}
	if !strings.Contains(xmlStr, "Header") {
		t.Error("missing Header element")
	}
	if !strings.Contains(xmlStr, "Body") {
		t.Error("missing Body element")
	}
}

// TestEnvelopeBuilder_Namespaces verifies all required namespaces are declared.
func TestEnvelopeBuilder_Namespaces(t *testing.T) {
	env := NewEnvelope()

	xmlBytes, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}

	xmlStr := string(xmlBytes)

	requiredNamespaces := []struct {
		prefix string
		uri    string
	}{
		{"xmlns:s", NsSoap},
		{"xmlns:a", NsAddressing},
		{"xmlns:w", NsWsman},
		{"xmlns:p", NsWsmanMicrosoft},
	}

	for _, ns := range requiredNamespaces {
		if !strings.Contains(xmlStr, ns.uri) {
			t.Errorf("missing namespace %s=%q", ns.prefix, ns.uri)
		}
	}
}

// TestEnvelopeBuilder_WithAction verifies setting the Action header.
func TestEnvelopeBuilder_WithAction(t *testing.T) {
	env := NewEnvelope().WithAction(ActionCreate)

	xmlBytes, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}

	xmlStr := string(xmlBytes)

	if !strings.Contains(xmlStr, ActionCreate) {
		t.Errorf("missing Action header value %q", ActionCreate)
	}
}

// TestEnvelopeBuilder_WithTo verifies setting the To header.
func TestEnvelopeBuilder_WithTo(t *testing.T) {
	endpoint := "https://server:5986/wsman"
	env := NewEnvelope().WithTo(endpoint)

	xmlBytes, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}

	xmlStr := string(xmlBytes)

	if !strings.Contains(xmlStr, endpoint) {
		t.Errorf("missing To header value %q", endpoint)
	}
}

// TestEnvelopeBuilder_WithResourceURI verifies setting the ResourceURI header.
func TestEnvelopeBuilder_WithResourceURI(t *testing.T) {
	env := NewEnvelope().WithResourceURI(ResourceURIPowerShell)

	xmlBytes, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}

	xmlStr := string(xmlBytes)

	if !strings.Contains(xmlStr, ResourceURIPowerShell) {
		t.Errorf("missing ResourceURI value %q", ResourceURIPowerShell)
	}
}

// TestEnvelopeBuilder_WithMessageID verifies setting the MessageID header.
func TestEnvelopeBuilder_WithMessageID(t *testing.T) {
	messageID := "uuid:test-message-id-12345"
	env := NewEnvelope().WithMessageID(messageID)

	xmlBytes, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}

	xmlStr := string(xmlBytes)

	if !strings.Contains(xmlStr, messageID) {
		t.Errorf("missing MessageID value %q", messageID)
	}
}

// TestEnvelopeBuilder_WithReplyTo verifies setting the ReplyTo header.
func TestEnvelopeBuilder_WithReplyTo(t *testing.T) {
	env := NewEnvelope().WithReplyTo(AddressAnonymous)

	xmlBytes, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}

	xmlStr := string(xmlBytes)

	if !strings.Contains(xmlStr, AddressAnonymous) {
		t.Errorf("missing ReplyTo Address value %q", AddressAnonymous)
	}
}

// TestEnvelopeBuilder_Chaining verifies method chaining works correctly.
func TestEnvelopeBuilder_Chaining(t *testing.T) {
	endpoint := "https://server:5986/wsman"
	messageID := "uuid:chained-test-id"

	env := NewEnvelope().
		WithAction(ActionCreate).
		WithTo(endpoint).
		WithResourceURI(ResourceURIPowerShell).
		WithMessageID(messageID).
		WithReplyTo(AddressAnonymous)

	xmlBytes, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}

	xmlStr := string(xmlBytes)

	// Verify all chained values are present
	checks := []string{
		ActionCreate,
		endpoint,
		ResourceURIPowerShell,
		messageID,
		AddressAnonymous,
	}

	for _, check := range checks {
		if !strings.Contains(xmlStr, check) {
			t.Errorf("missing value after chaining: %q", check)
		}
	}
}

// TestEnvelopeBuilder_WithMaxEnvelopeSize verifies MaxEnvelopeSize header.
func TestEnvelopeBuilder_WithMaxEnvelopeSize(t *testing.T) {
	env := NewEnvelope().WithMaxEnvelopeSize(153600)

	xmlBytes, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}

	xmlStr := string(xmlBytes)

	if !strings.Contains(xmlStr, "153600") {
		t.Error("missing MaxEnvelopeSize value")
	}
}

// TestEnvelopeBuilder_WithOperationTimeout verifies OperationTimeout header.
func TestEnvelopeBuilder_WithOperationTimeout(t *testing.T) {
	env := NewEnvelope().WithOperationTimeout("PT60S")

	xmlBytes, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}

	xmlStr := string(xmlBytes)

	if !strings.Contains(xmlStr, "PT60S") {
		t.Error("missing OperationTimeout value")
	}
}

// TestEnvelopeBuilder_WithOperationTimeoutDuration verifies the
// Duration-based OperationTimeout setter serializes PT<seconds>S.
func TestEnvelopeBuilder_WithOperationTimeoutDuration(t *testing.T) {
	env := NewEnvelope().WithOperationTimeoutDuration(90 * time.Second)
	if env.OperationTimeout() != "PT90S" {
		t.Errorf("OperationTimeout() = %q, want %q", env.OperationTimeout(), "PT90S")
	}
}

// TestEnvelopeBuilder_RoundTrip verifies the §8 envelope round-trip
// invariant: typed accessors return what was set, and mustUnderstand
// is "true" on Action/ResourceURI/ReplyTo, "false" on Locale/DataLocale.
// The To header is written without a mustUnderstand attribute.
func TestEnvelopeBuilder_RoundTrip(t *testing.T) {
	env := NewEnvelope().
		WithAction(ActionCommand).
		WithTo("https://host:5986/wsman").
		WithResourceURI(ResourceURIWinRS).
		WithMessageID("urn:uuid:test").
		WithReplyTo(AddressAnonymous).
		WithSelector("ShellId", "abc-123").
		WithOption("WINRS_SKIP_CMD_SHELL", "TRUE").
		WithLocale("en-US").
		WithDataLocale("en-US").
		WithOperationTimeoutDuration(30 * time.Second).
		WithMaxEnvelopeSize(153600)

	if env.Action() != ActionCommand {
		t.Errorf("Action() = %q, want %q", env.Action(), ActionCommand)
	}
	if env.To() != "https://host:5986/wsman" {
		t.Errorf("To() = %q", env.To())
	}
	if env.ResourceURI() != ResourceURIWinRS {
		t.Errorf("ResourceURI() = %q", env.ResourceURI())
	}
	if env.ReplyToAddress() != AddressAnonymous {
		t.Errorf("ReplyToAddress() = %q", env.ReplyToAddress())
	}
	if got := env.Selectors()["ShellId"]; got != "abc-123" {
		t.Errorf("Selectors()[ShellId] = %q, want %q", got, "abc-123")
	}
	if got := env.Options()["WINRS_SKIP_CMD_SHELL"]; got != "TRUE" {
		t.Errorf("Options()[WINRS_SKIP_CMD_SHELL] = %q", got)
	}
	if env.Locale() != "en-US" || env.DataLocale() != "en-US" {
		t.Errorf("Locale/DataLocale = %q/%q", env.Locale(), env.DataLocale())
	}
	if env.OperationTimeout() != "PT30S" {
		t.Errorf("OperationTimeout() = %q", env.OperationTimeout())
	}
	if size, ok := env.MaxEnvelopeSize(); !ok || size != 153600 {
		t.Errorf("MaxEnvelopeSize() = %d, %v", size, ok)
	}

	if env.Header.Action.MustUnderstand != "true" {
		t.Error("Action mustUnderstand should be true")
	}
	if env.Header.ResourceURI.MustUnderstand != "true" {
		t.Error("ResourceURI mustUnderstand should be true")
	}
	if env.Header.ReplyTo.Address.MustUnderstand != "true" {
		t.Error("ReplyTo/Address mustUnderstand should be true")
	}
	if env.Header.Locale.MustUnderstand != false {
		t.Error("Locale mustUnderstand should be false")
	}
	if env.Header.DataLocale.MustUnderstand != false {
		t.Error("DataLocale mustUnderstand should be false")
	}
}
