package winrmclient

import (
	"context"

	"github.com/smnsjas/go-winrm/winrs"
	"github.com/smnsjas/go-winrm/wsman"
)

// shellRunner wraps a winrs.Shell for RunCommand's one-shot usage.
type shellRunner struct {
	shell *winrs.Shell
}

func newShellRunner(ws *wsman.Client) (*shellRunner, error) {
	shell, err := winrs.NewShell(context.Background(), ws)
	if err != nil {
		return nil, err
	}
	return &shellRunner{shell: shell}, nil
}

func (r *shellRunner) run(ctx context.Context, executable string, args ...string) (stdout, stderr []byte, exitCode int, err error) {
	cmd, runErr := r.shell.Run(ctx, executable, args...)
	if cmd == nil {
		return nil, nil, 0, runErr
	}
	return cmd.Stdout(), cmd.Stderr(), cmd.ExitCode(), runErr
}

func (r *shellRunner) close(ctx context.Context) error {
	return r.shell.Close(ctx)
}
