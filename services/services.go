package services

import (
	"context"
	"fmt"

	"github.com/smnsjas/go-winrm/internal/dictify"
	"github.com/smnsjas/go-winrm/wsman"
)

// serviceURI is the CIM resource URI for Win32_Service.
var serviceURI = wsman.CIM("Win32_Service")

// Client accesses Win32_Service instances over a WSMan client.
type Client struct {
	ws *wsman.Client
}

// New wraps ws as a services client.
func New(ws *wsman.Client) *Client {
	return &Client{ws: ws}
}

// Get fetches the named service.
func (c *Client) Get(ctx context.Context, name string) (*Service, error) {
	body, err := c.ws.Get(ctx, serviceURI, map[string]string{"Name": name})
	if err != nil {
		return nil, err
	}
	fields, err := dictify.Dictify(body)
	if err != nil {
		return nil, fmt.Errorf("services: parse %s: %w", name, err)
	}
	return fromFields(fields), nil
}

// GetAll enumerates every Win32_Service instance.
func (c *Client) GetAll(ctx context.Context) ([]*Service, error) {
	en := c.ws.Enumerate(serviceURI, nil, 0)
	defer func() { _ = en.Close(ctx) }()

	var out []*Service
	for {
		item, ok, err := en.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		fields, err := dictify.Dictify(item)
		if err != nil {
			return nil, fmt.Errorf("services: parse enumerated instance: %w", err)
		}
		out = append(out, fromFields(fields))
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, name, method string, params []byte) error {
	_, err := c.ws.Invoke(ctx, serviceURI, map[string]string{"Name": name}, method, params)
	return err
}

// Start starts the named service.
func (c *Client) Start(ctx context.Context, name string) error {
	return c.invoke(ctx, name, "StartService", nil)
}

// Stop stops the named service.
func (c *Client) Stop(ctx context.Context, name string) error {
	return c.invoke(ctx, name, "StopService", nil)
}

// Pause pauses the named service.
func (c *Client) Pause(ctx context.Context, name string) error {
	return c.invoke(ctx, name, "PauseService", nil)
}

// Resume resumes the named paused service.
func (c *Client) Resume(ctx context.Context, name string) error {
	return c.invoke(ctx, name, "ResumeService", nil)
}

// Delete marks the named service for deletion.
func (c *Client) Delete(ctx context.Context, name string) error {
	return c.invoke(ctx, name, "Delete", nil)
}

// ChangeStartMode changes the named service's start mode.
func (c *Client) ChangeStartMode(ctx context.Context, name string, mode StartMode) error {
	body := []byte(`<p:ChangeStartMode_INPUT xmlns:p="` + serviceURI + `"><p:StartMode>` + string(mode) + `</p:StartMode></p:ChangeStartMode_INPUT>`)
	return c.invoke(ctx, name, "ChangeStartMode", body)
}

// Restart stops then starts the named service.
func (c *Client) Restart(ctx context.Context, name string) error {
	if err := c.Stop(ctx, name); err != nil {
		return err
	}
	return c.Start(ctx, name)
}

func fromFields(f map[string]any) *Service {
	s := &Service{Name: dictify.String(f["Name"])}
	s.AcceptPause = boolPtr(f, "AcceptPause")
	s.AcceptStop = boolPtr(f, "AcceptStop")
	s.Caption = strPtr(f, "Caption")
	s.CheckPoint = intPtr(f, "CheckPoint")
	s.CreationClassName = strPtr(f, "CreationClassName")
	s.Description = strPtr(f, "Description")
	s.DesktopInteract = boolPtr(f, "DesktopInteract")
	s.DisplayName = strPtr(f, "DisplayName")
	s.ErrorControl = strPtr(f, "ErrorControl")
	s.ExitCode = intPtr(f, "ExitCode")
	s.InstallDate = strPtr(f, "InstallDate")
	s.PathName = strPtr(f, "PathName")
	s.ProcessId = intPtr(f, "ProcessId")
	s.ServiceSpecificExitCode = intPtr(f, "ServiceSpecificExitCode")
	s.ServiceType = strPtr(f, "ServiceType")
	s.Started = boolPtr(f, "Started")
	s.StartMode = strPtr(f, "StartMode")
	s.StartName = strPtr(f, "StartName")
	s.State = strPtr(f, "State")
	s.Status = strPtr(f, "Status")
	s.SystemCreationClassName = strPtr(f, "SystemCreationClassName")
	s.SystemName = strPtr(f, "SystemName")
	s.TagId = intPtr(f, "TagId")
	s.WaitHint = intPtr(f, "WaitHint")
	s.DelayedAutoStart = boolPtr(f, "DelayedAutoStart")
	s.LoadOrderGroup = strPtr(f, "LoadOrderGroup")
	if v, ok := f["Dependencies"]; ok {
		s.Dependencies = dictify.StringSlice(v)
	}
	return s
}

func strPtr(f map[string]any, name string) *string {
	v, ok := f[name]
	if !ok || v == nil {
		return nil
	}
	s := dictify.String(v)
	return &s
}

func intPtr(f map[string]any, name string) *int64 {
	v, ok := f[name]
	if !ok || v == nil {
		return nil
	}
	n := dictify.Int64(v)
	return &n
}

func boolPtr(f map[string]any, name string) *bool {
	v, ok := f[name]
	if !ok || v == nil {
		return nil
	}
	b := dictify.Bool(v)
	return &b
}
