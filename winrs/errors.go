package winrs

import "errors"

// Sentinel errors for WinRS operations.
var (
	// ErrShellClosed indicates the shell has already been destroyed.
	ErrShellClosed = errors.New("winrs: shell is closed")

	// ErrProcessDone indicates the command has already completed.
	ErrProcessDone = errors.New("winrs: command already completed")

	// ErrInvalidExecutable indicates the command path is empty.
	ErrInvalidExecutable = errors.New("winrs: invalid executable")

	// errReceiveCancelled signals that a pending Receive was abandoned
	// because the stdin path needed the receive lock; the loop treats
	// it as "try again", never surfacing it to the caller.
	errReceiveCancelled = errors.New("winrs: receive cancelled")
)
