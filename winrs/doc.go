// Package winrs provides a Windows Remote Shell (WinRS) client.
//
// WinRS enables execution of cmd.exe commands on remote Windows systems
// via the WS-Management (WSMan) protocol. A Shell corresponds to one
// server-side shell instance; Start spawns a Command inside it and
// returns immediately, with a background goroutine long-polling
// Receive until the command reaches a terminal state.
//
// Basic usage:
//
//	shell, err := winrs.NewShell(ctx, wsmanClient,
//	    winrs.WithWorkingDirectory(`C:\temp`),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer shell.Close(ctx)
//
//	cmd, err := shell.Run(ctx, "cmd.exe", "/c", "dir /b")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(string(cmd.Stdout()))
//
// For interactive commands, use Start followed by StdinPipe and Wait,
// or Communicate to feed a single reader and collect both streams in
// one call.
package winrs
