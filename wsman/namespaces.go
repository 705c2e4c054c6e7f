// Package wsman implements the WS-Management (WSMan) protocol used by
// WinRM: SOAP 1.2 envelopes carrying WS-Addressing, WS-Transfer,
// WS-Enumeration and WSMan headers, a client that drives Get/Enumerate/
// Pull/Release/Invoke/Identify, and the Windows Remote Shell actions
// consumed by package winrs.
package wsman

// XML namespace URIs used throughout the SOAP envelope.
const (
	// NsSoap is the SOAP 1.2 envelope namespace.
	NsSoap = "http://www.w3.org/2003/05/soap-envelope"

	// NsAddressing is the WS-Addressing namespace.
	NsAddressing = "http://schemas.xmlsoap.org/ws/2004/08/addressing"

	// NsWsman is the DMTF WS-Management namespace.
	NsWsman = "http://schemas.dmtf.org/wbem/wsman/1/wsman.xsd"

	// NsWsmanMicrosoft is the Microsoft WS-Management namespace extension.
	NsWsmanMicrosoft = "http://schemas.microsoft.com/wbem/wsman/1/wsman.xsd"

	// NsWsmanIdentity is the WSMan Identify request/response namespace.
	NsWsmanIdentity = "http://schemas.dmtf.org/wbem/wsman/identity/1/wsmanidentity.xsd"

	// NsWsmanFault is the Microsoft WSManFault detail namespace.
	NsWsmanFault = "http://schemas.microsoft.com/wbem/wsman/1/wsmanfault"

	// NsShell is the Windows Remote Shell namespace.
	NsShell = "http://schemas.microsoft.com/wbem/wsman/1/windows/shell"

	// NsTransfer is the WS-Transfer namespace.
	NsTransfer = "http://schemas.xmlsoap.org/ws/2004/09/transfer"

	// NsEnumeration is the WS-Enumeration namespace.
	NsEnumeration = "http://schemas.xmlsoap.org/ws/2004/09/enumeration"

	// NsEventing is the WS-Eventing namespace. Subscribe/Unsubscribe are
	// out of scope; only the URI constant is exposed.
	NsEventing = "http://schemas.xmlsoap.org/ws/2004/08/eventing"

	// NsXsi is the XML Schema Instance namespace.
	NsXsi = "http://www.w3.org/2001/XMLSchema-instance"

	// NsXsd is the XML Schema namespace.
	NsXsd = "http://www.w3.org/2001/XMLSchema"
)

// WS-Addressing constants.
const (
	// AddressAnonymous is the WS-Addressing anonymous reply address.
	AddressAnonymous = "http://schemas.xmlsoap.org/ws/2004/08/addressing/role/anonymous"
)

// Action URIs for WS-Transfer operations (Get/Put/Create/Delete).
const (
	ActionGet             = NsTransfer + "/Get"
	ActionGetResponse     = NsTransfer + "/GetResponse"
	ActionPut             = NsTransfer + "/Put"
	ActionPutResponse     = NsTransfer + "/PutResponse"
	ActionCreate          = NsTransfer + "/Create"
	ActionCreateResponse  = NsTransfer + "/CreateResponse"
	ActionDelete          = NsTransfer + "/Delete"
	ActionDeleteResponse  = NsTransfer + "/DeleteResponse"
)

// Action URIs for WS-Enumeration operations.
const (
	ActionEnumerate         = NsEnumeration + "/Enumerate"
	ActionEnumerateResponse = NsEnumeration + "/EnumerateResponse"
	ActionPull              = NsEnumeration + "/Pull"
	ActionPullResponse      = NsEnumeration + "/PullResponse"
	ActionRelease           = NsEnumeration + "/Release"
	ActionReleaseResponse   = NsEnumeration + "/ReleaseResponse"
	ActionRenew             = NsEnumeration + "/Renew"
	ActionRenewResponse     = NsEnumeration + "/RenewResponse"
	ActionGetStatus         = NsEnumeration + "/GetStatus"
	ActionGetStatusResponse = NsEnumeration + "/GetStatusResponse"
)

// Action URIs for WS-Eventing. Out of scope beyond the URI constants
// themselves (no Subscribe/Unsubscribe implementation).
const (
	ActionSubscribe           = NsEventing + "/Subscribe"
	ActionSubscribeResponse   = NsEventing + "/SubscribeResponse"
	ActionUnsubscribe         = NsEventing + "/Unsubscribe"
	ActionUnsubscribeResponse = NsEventing + "/UnsubscribeResponse"
)

// ActionIdentify is the WSMan Identify action, answered without a
// ResourceURI or SelectorSet.
const (
	ActionIdentify         = NsWsmanIdentity + "/Identify"
	ActionIdentifyResponse = NsWsmanIdentity + "/IdentifyResponse"
)

// Action URIs for Windows Remote Shell operations.
const (
	// ActionCommand creates a command/pipeline within a shell.
	ActionCommand = NsShell + "/Command"

	// ActionCommandResponse is the response to Command.
	ActionCommandResponse = NsShell + "/CommandResponse"

	// ActionSend sends input data to a command.
	ActionSend = NsShell + "/Send"

	// ActionSendResponse is the response to Send.
	ActionSendResponse = NsShell + "/SendResponse"

	// ActionReceive retrieves output from a command.
	ActionReceive = NsShell + "/Receive"

	// ActionReceiveResponse is the response to Receive.
	ActionReceiveResponse = NsShell + "/ReceiveResponse"

	// ActionSignal sends a control signal (ctrl_c, terminate).
	ActionSignal = NsShell + "/Signal"

	// ActionSignalResponse is the response to Signal.
	ActionSignalResponse = NsShell + "/SignalResponse"
)

// Signal codes for the Signal action.
const (
	// SignalCtrlC sends Ctrl+C to a running command.
	SignalCtrlC = NsShell + "/signal/ctrl_c"

	// SignalTerminate terminates a command.
	SignalTerminate = NsShell + "/signal/Terminate"
)

// Action URIs for disconnected-session support.
const (
	ActionDisconnect         = NsShell + "/Disconnect"
	ActionDisconnectResponse = NsShell + "/DisconnectResponse"
	ActionReconnect          = NsShell + "/Reconnect"
	ActionReconnectResponse  = NsShell + "/ReconnectResponse"
	ActionConnect            = NsShell + "/Connect"
	ActionConnectResponse    = NsShell + "/ConnectResponse"
)

// Command states reported in a ReceiveResponse/CommandState element.
const (
	CommandStateRunning = NsShell + "/CommandState/Running"
	CommandStateDone    = NsShell + "/CommandState/Done"
)

// ResourceURIWinRS is the resource URI for the Windows Remote Shell
// cmd-shell resource ("…/windows/shell/cmd").
const ResourceURIWinRS = NsShell + "/cmd"

// ResourceURIPowerShell is the resource URI for PowerShell remoting
// sessions. Retained as a catalog constant; the PSRP inner session
// itself is out of scope.
const ResourceURIPowerShell = "http://schemas.microsoft.com/powershell/Microsoft.PowerShell"

// ResourceURIStdRegProv is the resource URI for the StdRegProv WMI
// provider used by package registry.
const ResourceURIStdRegProv = "http://schemas.microsoft.com/wbem/wsman/1/wmi/root/default/StdRegProv"

// URI joins segments under the WSMan schema root, matching the
// source's uri(...segments) helper.
func URI(segments ...string) string {
	out := "http://schemas.microsoft.com/wbem/wsman/1"
	for _, s := range segments {
		out += "/" + s
	}
	return out
}

// CIM returns the resource URI for a class in root\cimv2, e.g.
// CIM("Win32_Service").
func CIM(class string) string {
	return URI("wmi", "root", "cimv2", class)
}

// WMI returns the resource URI for a class in an arbitrary WMI
// namespace, defaulting to "default" (root\default) as the source
// does for StdRegProv-style providers.
func WMI(class string, namespace ...string) string {
	ns := "default"
	if len(namespace) > 0 && namespace[0] != "" {
		ns = namespace[0]
	}
	return URI("wmi", "root", ns, class)
}
