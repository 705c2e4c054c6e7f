// Package services provides a typed client for Win32_Service, the CIM
// class backing Windows services (§4.7).
package services

// Service mirrors a Win32_Service instance. Name is always populated;
// every other field is nil when the server omitted or nulled it.
type Service struct {
	Name string

	AcceptPause            *bool
	AcceptStop              *bool
	Caption                 *string
	CheckPoint              *int64
	CreationClassName       *string
	Description             *string
	DesktopInteract         *bool
	DisplayName             *string
	ErrorControl            *string
	ExitCode                *int64
	InstallDate             *string
	PathName                *string
	ProcessId               *int64
	ServiceSpecificExitCode *int64
	ServiceType             *string
	Started                 *bool
	StartMode               *string
	StartName               *string
	State                   *string
	Status                  *string
	SystemCreationClassName *string
	SystemName              *string
	TagId                   *int64
	WaitHint                *int64
	DelayedAutoStart        *bool
	LoadOrderGroup          *string
	Dependencies            []string
}

// StartMode is one of the values accepted by ChangeStartMode.
type StartMode string

const (
	StartModeBoot      StartMode = "Boot"
	StartModeSystem    StartMode = "System"
	StartModeAutomatic StartMode = "Automatic"
	StartModeManual    StartMode = "Manual"
	StartModeDisabled  StartMode = "Disabled"
)
