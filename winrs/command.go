package winrs

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/smnsjas/go-winrm/wsman"
)

// receivePollTimeout is the OperationTimeout on each long-poll Receive
// request; short enough that an idle server faults with
// CodeOperationTimeout rather than holding the connection indefinitely
// (§4.8 step 1).
const receivePollTimeout = 1 * time.Second

const stdinChunkSize = 65536

// Command represents a program spawned inside a Shell.
type Command struct {
	shell     *Shell
	commandID string
	cctx      *commandContext

	mu       sync.Mutex
	stdout   []byte
	stderr   []byte
	exitCode int
	err      error

	finished chan struct{}
}

// Run executes a command and waits for completion.
func (s *Shell) Run(ctx context.Context, executable string, args ...string) (*Command, error) {
	cmd, err := s.Start(ctx, executable, args...)
	if err != nil {
		return nil, err
	}
	if _, err := cmd.Wait(ctx); err != nil {
		return cmd, err
	}
	return cmd, nil
}

// Start spawns executable with args inside the shell and begins its
// receive loop. Use Wait or Communicate to observe completion.
func (s *Shell) Start(ctx context.Context, executable string, args ...string) (*Command, error) {
	if s.isClosed() {
		return nil, ErrShellClosed
	}
	if executable == "" {
		return nil, ErrInvalidExecutable
	}

	body := buildCommandLine(executable, args)
	options := map[string]string{
		"WINRS_CONSOLEMODE_STDIN": "TRUE",
		"WINRS_SKIP_CMD_SHELL":    "TRUE",
	}

	commandID, err := s.transport.Command(ctx, s.epr, options, body)
	if err != nil {
		return nil, fmt.Errorf("winrs: start command: %w", err)
	}

	cctx := s.openCommandContext(commandID)
	cmd := &Command{
		shell:     s,
		commandID: commandID,
		cctx:      cctx,
		finished:  make(chan struct{}),
	}

	go s.receiveLoop(cmd)
	return cmd, nil
}

func buildCommandLine(executable string, args []string) []byte {
	var b bytes.Buffer
	b.WriteString(`<rsp:CommandLine xmlns:rsp="`)
	b.WriteString(wsman.NsShell)
	b.WriteString(`">`)
	b.WriteString("<rsp:Command>")
	_ = xml.EscapeText(&b, []byte(executable))
	b.WriteString("</rsp:Command>")
	for _, a := range args {
		b.WriteString("<rsp:Arguments>")
		_ = xml.EscapeText(&b, []byte(a))
		b.WriteString("</rsp:Arguments>")
	}
	b.WriteString("</rsp:CommandLine>")
	return b.Bytes()
}

// CommandID returns the server-assigned CommandId.
func (c *Command) CommandID() string { return c.commandID }

// Done reports whether the command has reached a terminal state.
func (c *Command) Done() bool { return c.cctx.done.isSet() }

// Stdout returns the bytes captured so far. Safe to call at any time;
// fully populated once Wait returns.
func (c *Command) Stdout() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.stdout...)
}

// Stderr returns the bytes captured so far.
func (c *Command) Stderr() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.stderr...)
}

// ExitCode returns the process exit code. Valid once Wait returns.
func (c *Command) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

// Wait blocks until the command's receive loop terminates, returning
// its exit code. A non-nil error means the loop ended on a
// non-timeout fault (§8 scenario 6) rather than a clean CommandState
// Done.
func (c *Command) Wait(ctx context.Context) (int, error) {
	select {
	case <-c.finished:
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.exitCode, c.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Signal posts a control signal (wsman.SignalCtrlC, SignalTerminate)
// to the running command.
func (c *Command) Signal(ctx context.Context, code string) error {
	if err := c.shell.transport.Signal(ctx, c.shell.epr, c.commandID, code); err != nil {
		return fmt.Errorf("winrs: signal: %w", err)
	}
	return nil
}

// Terminate sends SignalTerminate.
func (c *Command) Terminate(ctx context.Context) error {
	return c.Signal(ctx, wsman.SignalTerminate)
}

// StdinPipe returns a writer for the command's stdin stream, backed by
// a feeder goroutine that flushes each Write as its own chunk and
// closes the stream (Stream/@End="true") when the writer is closed.
// Each write interrupts any pending Receive so the server sees input
// promptly (§4.8, §9).
func (c *Command) StdinPipe() (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	c.setStdinCancel(cancel)

	go func() {
		defer cancel()
		buf := make([]byte, stdinChunkSize)
		for {
			n, err := pr.Read(buf)
			if n > 0 {
				if sendErr := c.shell.send(ctx, c.cctx, c.commandID, buf[:n], false, true); sendErr != nil {
					_ = pr.CloseWithError(sendErr)
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					return
				}
				_ = c.shell.send(ctx, c.cctx, c.commandID, nil, true, true)
				return
			}
		}
	}()

	return pw, nil
}

// CopyStdin streams r to the command's stdin in the background,
// sending the final empty/End chunk once r is exhausted. It does not
// interrupt a pending Receive on every chunk, matching bulk (file or
// reader) stdin sources rather than interactive ones.
func (c *Command) CopyStdin(r io.Reader) error {
	ctx, cancel := context.WithCancel(context.Background())
	c.setStdinCancel(cancel)

	go func() {
		defer cancel()
		buf := make([]byte, stdinChunkSize)
		for {
			if c.cctx.done.isSet() {
				return
			}
			n, err := r.Read(buf)
			if n > 0 {
				if sendErr := c.shell.send(ctx, c.cctx, c.commandID, buf[:n], false, false); sendErr != nil {
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) && !c.cctx.done.isSet() {
					_ = c.shell.send(ctx, c.cctx, c.commandID, nil, true, false)
				}
				return
			}
		}
	}()
	return nil
}

func (c *Command) setStdinCancel(cancel context.CancelFunc) {
	c.cctx.mu.Lock()
	c.cctx.stdinCancel = cancel
	c.cctx.mu.Unlock()
}

// Communicate optionally streams stdin to the command, then waits for
// completion and returns the full stdout/stderr captured.
func (c *Command) Communicate(ctx context.Context, stdin io.Reader) (stdout, stderr []byte, err error) {
	if stdin != nil {
		if cerr := c.CopyStdin(stdin); cerr != nil {
			return nil, nil, cerr
		}
	}
	if _, werr := c.Wait(ctx); werr != nil {
		return c.Stdout(), c.Stderr(), werr
	}
	return c.Stdout(), c.Stderr(), nil
}

// send posts one chunk to the command's stdin stream, interrupting
// the shell's in-flight Receive first when cancelReceive is set
// (§4.8 step 2, §9).
func (s *Shell) send(ctx context.Context, cctx *commandContext, commandID string, data []byte, end, cancelReceive bool) error {
	if cancelReceive {
		cctx.receiveCancel.set()
		_ = cctx.receiveIdle.wait(ctx)
		cctx.receiveCancel.clear()
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.transport.Send(ctx, s.epr, commandID, "stdin", data, end)
}

// receiveOnce issues a single long-poll Receive, racing it against the
// command's receive-cancel signal so the stdin path can interrupt a
// pending poll promptly (§4.8 step 2).
func (s *Shell) receiveOnce(ctx context.Context, commandID string, cctx *commandContext) (*wsman.ReceiveResult, error) {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	cctx.receiveIdle.clear()
	defer cctx.receiveIdle.set()

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		res *wsman.ReceiveResult
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := s.transport.Receive(reqCtx, s.epr, commandID, "stdout stderr", receivePollTimeout)
		ch <- outcome{res, err}
	}()

	select {
	case o := <-ch:
		return o.res, o.err
	case <-cctx.receiveCancel.C():
		cancel()
		<-ch
		return nil, errReceiveCancelled
	}
}

// receiveLoop is the dedicated per-command task described in §4.8: it
// long-polls Receive, absorbs operation-timeout faults and
// receive-cancellations as normal continuation, and terminates on a
// clean CommandState Done, both streams reaching End="true", or a
// non-timeout fault.
func (s *Shell) receiveLoop(cmd *Command) {
	cctx := cmd.cctx

	var stdoutEnd, stderrEnd, doneSeen bool
	exitCode := 0
	var loopErr error

	for {
		res, err := s.receiveOnce(context.Background(), cmd.commandID, cctx)
		if err != nil {
			if errors.Is(err, errReceiveCancelled) {
				continue
			}
			if wsman.IsOperationTimeout(err) {
				continue
			}
			loopErr = err
			break
		}

		cmd.mu.Lock()
		cmd.stdout = append(cmd.stdout, res.Stdout...)
		cmd.stderr = append(cmd.stderr, res.Stderr...)
		cmd.mu.Unlock()

		if res.StdoutEnd {
			stdoutEnd = true
		}
		if res.StderrEnd {
			stderrEnd = true
		}
		if res.Done {
			doneSeen = true
			exitCode = res.ExitCode
			break
		}
		if stdoutEnd && stderrEnd {
			break
		}
	}

	cmd.mu.Lock()
	cmd.exitCode = exitCode
	cmd.err = loopErr
	cmd.mu.Unlock()

	cctx.done.set()

	cctx.mu.Lock()
	stdinCancel := cctx.stdinCancel
	cctx.mu.Unlock()
	if stdinCancel != nil {
		stdinCancel()
	}

	if doneSeen {
		// Best-effort cleanup signal on clean completion; errors are
		// swallowed (§4.8 step 5, §9 open question).
		_ = s.transport.Signal(context.Background(), s.epr, cmd.commandID, wsman.SignalTerminate)
	}

	s.closeCommandContext(cmd.commandID)
	close(cmd.finished)
}
