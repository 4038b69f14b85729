package supervisor

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingLaunchTarget means the request had neither a command nor a URL/port.
	ErrMissingLaunchTarget = errors.New("missing command and url/port")
	// ErrSpawnFailed is matched by every *SpawnError.
	ErrSpawnFailed      = errors.New("failed to start tool")
	ErrInvalidProcessID = errors.New("invalid process id")
	ErrUnknownProcess   = errors.New("process is not tracked")
	ErrOpenFailed       = errors.New("failed to open")
	ErrAlreadyArmed     = errors.New("shutdown reaper already armed")
	// ErrShuttingDown is returned by Launch once the launcher has been closed.
	ErrShuttingDown = errors.New("launcher is closed for shutdown")
)

// SpawnError carries the OS error text for a failed spawn.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSpawnFailed.Error(), e.Err)
}

func (e *SpawnError) Unwrap() []error {
	return []error{ErrSpawnFailed, e.Err}
}
