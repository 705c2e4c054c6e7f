package winrs

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"sync"
	"time"

	"github.com/smnsjas/go-winrm/wsman"
)

// shellConfig holds the configuration for a Shell.
type shellConfig struct {
	workingDir  string
	environment map[string]string
	lifetime    time.Duration
	codepage    int
	noProfile   bool
}

// Option configures a Shell.
type Option func(*shellConfig)

// WithWorkingDirectory sets the shell's initial working directory.
func WithWorkingDirectory(dir string) Option {
	return func(c *shellConfig) { c.workingDir = dir }
}

// WithEnvironment sets environment variables for the shell.
func WithEnvironment(env map[string]string) Option {
	return func(c *shellConfig) { c.environment = env }
}

// WithLifetime bounds how long the server keeps the shell alive.
func WithLifetime(d time.Duration) Option {
	return func(c *shellConfig) { c.lifetime = d }
}

// WithCodepage sets the console codepage.
// Common values: 437 (OEM/DOS), 65001 (UTF-8).
func WithCodepage(cp int) Option {
	return func(c *shellConfig) { c.codepage = cp }
}

// WithNoProfile prevents loading the user profile on shell creation.
func WithNoProfile() Option {
	return func(c *shellConfig) { c.noProfile = true }
}

// commandContext is the per-running-command coordination state
// described in §3 "Command context": a done signal, a receive-cancel
// signal, a receive-idle signal, and the feeder goroutine's cancel
// function (set once a stdin source is attached).
type commandContext struct {
	commandID     string
	done          *event
	receiveCancel *event
	receiveIdle   *event

	mu          sync.Mutex
	stdinCancel context.CancelFunc
}

// Shell represents a WinRS cmd.exe shell session. Only one sender or
// receiver may hold the send/receive locks at a time (§3 "Shell").
type Shell struct {
	transport Transport
	epr       *wsman.EndpointReference
	config    shellConfig

	mu      sync.Mutex
	closed  bool
	sendMu  sync.Mutex
	recvMu  sync.Mutex
	cmdsMu  sync.Mutex
	cmds    map[string]*commandContext
}

// NewShell creates a new WinRS shell on the remote system.
func NewShell(ctx context.Context, transport Transport, opts ...Option) (*Shell, error) {
	if transport == nil {
		return nil, fmt.Errorf("winrs: transport is nil")
	}

	cfg := shellConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	options := map[string]string{}
	if cfg.noProfile {
		options["WINRS_NOPROFILE"] = "TRUE"
	}
	if cfg.codepage > 0 {
		options["WINRS_CODEPAGE"] = fmt.Sprintf("%d", cfg.codepage)
	}

	body := buildShellBody(cfg)

	epr, err := transport.Create(ctx, wsman.ResourceURIWinRS, options, body)
	if err != nil {
		return nil, fmt.Errorf("winrs: create shell: %w", err)
	}

	return &Shell{
		transport: transport,
		epr:       epr,
		config:    cfg,
		cmds:      map[string]*commandContext{},
	}, nil
}

func buildShellBody(cfg shellConfig) []byte {
	var b bytes.Buffer
	b.WriteString(`<rsp:Shell xmlns:rsp="`)
	b.WriteString(wsman.NsShell)
	b.WriteString(`">`)
	if cfg.workingDir != "" {
		fmt.Fprintf(&b, "<rsp:WorkingDirectory>%s</rsp:WorkingDirectory>", xmlEscape(cfg.workingDir))
	}
	if len(cfg.environment) > 0 {
		b.WriteString("<rsp:Environment>")
		for name, value := range cfg.environment {
			fmt.Fprintf(&b, `<rsp:Variable Name="%s">%s</rsp:Variable>`, xmlEscape(name), xmlEscape(value))
		}
		b.WriteString("</rsp:Environment>")
	}
	b.WriteString("<rsp:InputStreams>stdin</rsp:InputStreams>")
	b.WriteString("<rsp:OutputStreams>stdout stderr</rsp:OutputStreams>")
	if cfg.lifetime > 0 {
		fmt.Fprintf(&b, "<rsp:Lifetime>%s</rsp:Lifetime>", formatDuration(cfg.lifetime))
	}
	b.WriteString("</rsp:Shell>")
	return b.Bytes()
}

func xmlEscape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// ID returns the shell ID.
func (s *Shell) ID() string {
	for _, sel := range s.epr.Selectors {
		if sel.Name == "ShellId" {
			return sel.Value
		}
	}
	return ""
}

// EPR returns the shell's endpoint reference for low-level operations.
func (s *Shell) EPR() *wsman.EndpointReference {
	return s.epr
}

// Close terminates the shell. After Close, Start (and so Run) returns
// ErrShellClosed; Commands started before Close are not checked against
// the closed flag, so their Signal, stdin and Wait calls still go to the
// transport.
func (s *Shell) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.transport.Delete(ctx, s.epr); err != nil {
		return fmt.Errorf("winrs: close shell: %w", err)
	}
	return nil
}

func (s *Shell) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Shell) openCommandContext(commandID string) *commandContext {
	cctx := &commandContext{
		commandID:     commandID,
		done:          newEvent(),
		receiveCancel: newEvent(),
		receiveIdle:   newEvent(),
	}
	cctx.receiveIdle.set()

	s.cmdsMu.Lock()
	s.cmds[commandID] = cctx
	s.cmdsMu.Unlock()
	return cctx
}

func (s *Shell) closeCommandContext(commandID string) {
	s.cmdsMu.Lock()
	delete(s.cmds, commandID)
	s.cmdsMu.Unlock()
}

// formatDuration converts a time.Duration to ISO 8601 duration string (PTnS).
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("PT%dS", int64(d/time.Second))
}
