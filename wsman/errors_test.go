package wsman

import (
	"errors"
	"strings"
	"testing"
)

func TestParseFault_WSManFault(t *testing.T) {
	faultXML := `<?xml version="1.0" encoding="UTF-8"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"
            xmlns:a="http://schemas.xmlsoap.org/ws/2004/08/addressing">
  <s:Body>
    <s:Fault>
      <s:Code>
        <s:Value>s:Sender</s:Value>
        <s:Subcode>
          <s:Value>w:InvalidSelectors</s:Value>
        </s:Subcode>
      </s:Code>
      <s:Reason>
        <s:Text xml:lang="en-US">The specified shell was not found.</s:Text>
      </s:Reason>
      <s:Detail>
        <p:WSManFault xmlns:p="http://schemas.microsoft.com/wbem/wsman/1/wsman.xsd"
                      Code="2150858843" Machine="SERVER01">
          <p:Message>Shell not found</p:Message>
        </p:WSManFault>
      </s:Detail>
    </s:Fault>
  </s:Body>
</s:Envelope>`

	fault, err := ParseFault([]byte(faultXML))
	if err != nil {
		t.Fatalf("ParseFault failed: %v", err)
	}

	var wsf *WSManFaultError
	if !errors.As(fault, &wsf) {
		t.Fatalf("ParseFault returned %T, want *WSManFaultError", fault)
	}

	if wsf.Code != "w:InvalidSelectors" {
		t.Errorf("Code = %q, want %q", wsf.Code, "w:InvalidSelectors")
	}
	if !strings.Contains(wsf.Reason, "shell was not found") {
		t.Errorf("Reason = %q, want to contain 'shell was not found'", wsf.Reason)
	}
	if wsf.WSManCode != 2150858843 {
		t.Errorf("WSManCode = %d, want %d", wsf.WSManCode, 2150858843)
	}
	if wsf.IsShellNotFound() != true {
		t.Errorf("IsShellNotFound() = false, want true")
	}
}

func TestParseFault_SOAPOnly(t *testing.T) {
	faultXML := `<?xml version="1.0" encoding="UTF-8"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope">
  <s:Body>
    <s:Fault>
      <s:Code><s:Value>s:Receiver</s:Value></s:Code>
      <s:Reason><s:Text>internal error</s:Text></s:Reason>
    </s:Fault>
  </s:Body>
</s:Envelope>`

	fault, err := ParseFault([]byte(faultXML))
	if err != nil {
		t.Fatalf("ParseFault failed: %v", err)
	}

	var sf *SOAPFaultError
	if !errors.As(fault, &sf) {
		t.Fatalf("ParseFault returned %T, want *SOAPFaultError", fault)
	}
	if sf.Code != "s:Receiver" {
		t.Errorf("Code = %q, want %q", sf.Code, "s:Receiver")
	}
}

func TestParseFault_NotAFault(t *testing.T) {
	normalXML := `<?xml version="1.0" encoding="UTF-8"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope">
  <s:Body>
    <rsp:Shell xmlns:rsp="http://schemas.microsoft.com/wbem/wsman/1/windows/shell">
      <rsp:ShellId>test-id</rsp:ShellId>
    </rsp:Shell>
  </s:Body>
</s:Envelope>`

	fault, err := ParseFault([]byte(normalXML))
	if err != nil {
		t.Fatalf("ParseFault failed: %v", err)
	}
	if fault != nil {
		t.Errorf("expected nil fault for normal response, got %+v", fault)
	}
}

func TestWSManFaultError_Error(t *testing.T) {
	fault := &WSManFaultError{Code: "w:InvalidSelectors", Reason: "Shell not found", WSManCode: 2150858843}

	errStr := fault.Error()
	if !strings.Contains(errStr, "w:InvalidSelectors") {
		t.Errorf("error message should contain code, got %q", errStr)
	}
	if !strings.Contains(errStr, "Shell not found") {
		t.Errorf("error message should contain reason, got %q", errStr)
	}
}

func TestIsOperationTimeout(t *testing.T) {
	timeout := &WSManFaultError{WSManCode: CodeOperationTimeout}
	if !IsOperationTimeout(timeout) {
		t.Error("IsOperationTimeout should return true for CodeOperationTimeout")
	}

	other := &WSManFaultError{WSManCode: 5}
	if IsOperationTimeout(other) {
		t.Error("IsOperationTimeout should return false for a non-timeout code")
	}

	if IsOperationTimeout(errors.New("plain error")) {
		t.Error("IsOperationTimeout should return false for an unrelated error")
	}
}

func TestWSManFaultError_IsAccessDenied(t *testing.T) {
	tests := []struct {
		name     string
		fault    *WSManFaultError
		expected bool
	}{
		{
			name:     "access denied by code",
			fault:    &WSManFaultError{Code: "w:AccessDenied"},
			expected: true,
		},
		{
			name:     "access denied by WSMan code",
			fault:    &WSManFaultError{WSManCode: 5},
			expected: true,
		},
		{
			name:     "not access denied",
			fault:    &WSManFaultError{Code: "s:Sender"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fault.IsAccessDenied(); got != tt.expected {
				t.Errorf("IsAccessDenied() = %v, want %v", got, tt.expected)
			}
		})
	}
}
