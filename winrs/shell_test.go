package winrs

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smnsjas/go-winrm/wsman"
)

// mockTransport implements Transport for testing. receiveFn is called
// once per Receive poll; the default behavior immediately completes
// the command with canned output.
type mockTransport struct {
	mu sync.Mutex

	createFn  func(ctx context.Context, resourceURI string, options map[string]string, body []byte) (*wsman.EndpointReference, error)
	commandFn func(ctx context.Context, epr *wsman.EndpointReference, options map[string]string, body []byte) (string, error)
	sendFn    func(ctx context.Context, epr *wsman.EndpointReference, commandID, stream string, data []byte, end bool) error
	receiveFn func(ctx context.Context, epr *wsman.EndpointReference, commandID, streams string, timeout time.Duration) (*wsman.ReceiveResult, error)
	signalFn  func(ctx context.Context, epr *wsman.EndpointReference, commandID, code string) error
	deleteFn  func(ctx context.Context, epr *wsman.EndpointReference) error

	sentStdin bytes.Buffer
	signals   []string
}

func (m *mockTransport) Create(ctx context.Context, resourceURI string, options map[string]string, body []byte) (*wsman.EndpointReference, error) {
	if m.createFn != nil {
		return m.createFn(ctx, resourceURI, options, body)
	}
	return &wsman.EndpointReference{
		ResourceURI: resourceURI,
		Selectors:   []wsman.Selector{{Name: "ShellId", Value: "test-shell-id"}},
	}, nil
}

func (m *mockTransport) Command(ctx context.Context, epr *wsman.EndpointReference, options map[string]string, body []byte) (string, error) {
	if m.commandFn != nil {
		return m.commandFn(ctx, epr, options, body)
	}
	return "test-command-id", nil
}

func (m *mockTransport) Send(ctx context.Context, epr *wsman.EndpointReference, commandID, stream string, data []byte, end bool) error {
	m.mu.Lock()
	m.sentStdin.Write(data)
	m.mu.Unlock()
	if m.sendFn != nil {
		return m.sendFn(ctx, epr, commandID, stream, data, end)
	}
	return nil
}

// oneShotReceive returns a receiveFn that answers one completed
// ReceiveResult on the first call and blocks (via context) afterward,
// simulating a server that has nothing further to say.
func oneShotReceive(stdout, stderr string, exitCode int) func(ctx context.Context, epr *wsman.EndpointReference, commandID, streams string, timeout time.Duration) (*wsman.ReceiveResult, error) {
	var called bool
	var mu sync.Mutex
	return func(ctx context.Context, epr *wsman.EndpointReference, commandID, streams string, timeout time.Duration) (*wsman.ReceiveResult, error) {
		mu.Lock()
		first := !called
		called = true
		mu.Unlock()
		if first {
			return &wsman.ReceiveResult{
				Stdout:       []byte(stdout),
				Stderr:       []byte(stderr),
				StdoutEnd:    true,
				StderrEnd:    true,
				CommandState: wsman.CommandStateDone,
				ExitCode:     exitCode,
				Done:         true,
			}, nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func (m *mockTransport) Receive(ctx context.Context, epr *wsman.EndpointReference, commandID, streams string, timeout time.Duration) (*wsman.ReceiveResult, error) {
	if m.receiveFn != nil {
		return m.receiveFn(ctx, epr, commandID, streams, timeout)
	}
	return oneShotReceive("test output\n", "", 0)(ctx, epr, commandID, streams, timeout)
}

func (m *mockTransport) Signal(ctx context.Context, epr *wsman.EndpointReference, commandID, code string) error {
	m.mu.Lock()
	m.signals = append(m.signals, code)
	m.mu.Unlock()
	if m.signalFn != nil {
		return m.signalFn(ctx, epr, commandID, code)
	}
	return nil
}

func (m *mockTransport) Delete(ctx context.Context, epr *wsman.EndpointReference) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, epr)
	}
	return nil
}

func TestNewShell(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"default options", nil},
		{"with working directory", []Option{WithWorkingDirectory(`C:\temp`)}},
		{"with codepage", []Option{WithCodepage(65001)}},
		{"with no profile", []Option{WithNoProfile()}},
		{"with environment", []Option{WithEnvironment(map[string]string{"VAR": "value"})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockTransport{}
			shell, err := NewShell(context.Background(), mock, tt.opts...)
			if err != nil {
				t.Fatalf("NewShell() error = %v", err)
			}
			if shell.ID() != "test-shell-id" {
				t.Errorf("shell.ID() = %q, want %q", shell.ID(), "test-shell-id")
			}
			if err := shell.Close(context.Background()); err != nil {
				t.Errorf("shell.Close() error = %v", err)
			}
		})
	}
}

func TestNewShell_NilTransport(t *testing.T) {
	if _, err := NewShell(context.Background(), nil); err == nil {
		t.Error("NewShell(nil) expected error, got nil")
	}
}

func TestShell_Run(t *testing.T) {
	mock := &mockTransport{}
	shell, err := NewShell(context.Background(), mock)
	if err != nil {
		t.Fatalf("NewShell() error = %v", err)
	}
	defer shell.Close(context.Background())

	cmd, err := shell.Run(context.Background(), "dir", "/b")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if string(cmd.Stdout()) != "test output\n" {
		t.Errorf("Stdout = %q, want %q", cmd.Stdout(), "test output\n")
	}
	if cmd.ExitCode() != 0 {
		t.Errorf("ExitCode = %d, want 0", cmd.ExitCode())
	}
	if !cmd.Done() {
		t.Error("Done() = false after Wait returned")
	}
}

func TestShell_Run_EmptyExecutable(t *testing.T) {
	mock := &mockTransport{}
	shell, err := NewShell(context.Background(), mock)
	if err != nil {
		t.Fatalf("NewShell() error = %v", err)
	}
	defer shell.Close(context.Background())

	if _, err := shell.Run(context.Background(), ""); err != ErrInvalidExecutable {
		t.Errorf("Run(\"\") error = %v, want %v", err, ErrInvalidExecutable)
	}
}

func TestShell_ClosedShell(t *testing.T) {
	mock := &mockTransport{}
	shell, err := NewShell(context.Background(), mock)
	if err != nil {
		t.Fatalf("NewShell() error = %v", err)
	}
	if err := shell.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := shell.Run(context.Background(), "dir"); err != ErrShellClosed {
		t.Errorf("Run on closed shell error = %v, want %v", err, ErrShellClosed)
	}
	if err := shell.Close(context.Background()); err != nil {
		t.Errorf("double Close() error = %v", err)
	}
}

func TestCommand_Signal(t *testing.T) {
	mock := &mockTransport{
		receiveFn: oneShotReceive("", "", 0),
	}
	shell, err := NewShell(context.Background(), mock)
	if err != nil {
		t.Fatalf("NewShell() error = %v", err)
	}
	defer shell.Close(context.Background())

	cmd, err := shell.Start(context.Background(), "ping", "-t", "localhost")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := cmd.Signal(context.Background(), wsman.SignalCtrlC); err != nil {
		t.Errorf("Signal() error = %v", err)
	}

	mock.mu.Lock()
	defer mock.mu.Unlock()
	found := false
	for _, s := range mock.signals {
		if s == wsman.SignalCtrlC {
			found = true
		}
	}
	if !found {
		t.Error("Signal() did not reach the transport")
	}
}

// TestCommand_OperationTimeoutAbsorption reproduces spec scenario 6:
// a Receive fault with WSMan code 2150858793 is retried silently, and
// the command still completes cleanly on the next poll.
func TestCommand_OperationTimeoutAbsorption(t *testing.T) {
	var calls int
	var mu sync.Mutex
	mock := &mockTransport{
		receiveFn: func(ctx context.Context, epr *wsman.EndpointReference, commandID, streams string, timeout time.Duration) (*wsman.ReceiveResult, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				return nil, &wsman.WSManFaultError{WSManCode: wsman.CodeOperationTimeout, Reason: "timed out"}
			}
			return &wsman.ReceiveResult{Done: true, CommandState: wsman.CommandStateDone, ExitCode: 0, StdoutEnd: true, StderrEnd: true}, nil
		},
	}
	shell, err := NewShell(context.Background(), mock)
	if err != nil {
		t.Fatalf("NewShell() error = %v", err)
	}
	defer shell.Close(context.Background())

	cmd, err := shell.Start(context.Background(), "whoami")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	exitCode, err := cmd.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if exitCode != 0 {
		t.Errorf("exitCode = %d, want 0", exitCode)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls < 2 {
		t.Errorf("calls = %d, want at least 2 (timeout then success)", calls)
	}
}

// TestCommand_NonTimeoutFault verifies a non-timeout WSMan fault on
// Receive terminates the command with that error (§8 scenario 6).
func TestCommand_NonTimeoutFault(t *testing.T) {
	wantErr := &wsman.WSManFaultError{WSManCode: 1, Reason: "access denied"}
	mock := &mockTransport{
		receiveFn: func(ctx context.Context, epr *wsman.EndpointReference, commandID, streams string, timeout time.Duration) (*wsman.ReceiveResult, error) {
			return nil, wantErr
		},
	}
	shell, err := NewShell(context.Background(), mock)
	if err != nil {
		t.Fatalf("NewShell() error = %v", err)
	}
	defer shell.Close(context.Background())

	cmd, err := shell.Start(context.Background(), "whoami")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := cmd.Wait(context.Background()); err != wantErr {
		t.Errorf("Wait() error = %v, want %v", err, wantErr)
	}
}

func TestCommand_Communicate(t *testing.T) {
	// The command completes only after the End chunk of stdin has been
	// sent, so CopyStdin is not cut short by an early completion.
	stdinDone := make(chan struct{})
	var once sync.Once
	receive := oneShotReceive("echoed\n", "", 0)
	mock := &mockTransport{
		sendFn: func(ctx context.Context, epr *wsman.EndpointReference, commandID, stream string, data []byte, end bool) error {
			if end {
				once.Do(func() { close(stdinDone) })
			}
			return nil
		},
		receiveFn: func(ctx context.Context, epr *wsman.EndpointReference, commandID, streams string, timeout time.Duration) (*wsman.ReceiveResult, error) {
			select {
			case <-stdinDone:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return receive(ctx, epr, commandID, streams, timeout)
		},
	}
	shell, err := NewShell(context.Background(), mock)
	if err != nil {
		t.Fatalf("NewShell() error = %v", err)
	}
	defer shell.Close(context.Background())

	cmd, err := shell.Start(context.Background(), "sort")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stdout, _, err := cmd.Communicate(context.Background(), strings.NewReader("hello\n"))
	if err != nil {
		t.Fatalf("Communicate() error = %v", err)
	}
	if string(stdout) != "echoed\n" {
		t.Errorf("stdout = %q", stdout)
	}

	mock.mu.Lock()
	defer mock.mu.Unlock()
	if !strings.Contains(mock.sentStdin.String(), "hello") {
		t.Error("CopyStdin did not send the input reader's contents")
	}
}

// TestCommand_CleanCompletionSignalsTerminate verifies the conservative
// choice documented in the design notes: the engine signals Terminate
// even after a clean CommandState Done, not only on abandonment.
func TestCommand_CleanCompletionSignalsTerminate(t *testing.T) {
	mock := &mockTransport{receiveFn: oneShotReceive("", "", 0)}
	shell, err := NewShell(context.Background(), mock)
	if err != nil {
		t.Fatalf("NewShell() error = %v", err)
	}
	defer shell.Close(context.Background())

	cmd, err := shell.Start(context.Background(), "whoami")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := cmd.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	mock.mu.Lock()
	defer mock.mu.Unlock()
	found := false
	for _, s := range mock.signals {
		if s == wsman.SignalTerminate {
			found = true
		}
	}
	if !found {
		t.Error("expected a best-effort Terminate signal after clean completion")
	}
}
