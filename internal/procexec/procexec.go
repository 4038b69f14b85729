// Package procexec starts shell commands as detached children and
// force-kills them by process group.
package procexec

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"time"

	"github.com/mattjoyce/toolhub/internal/log"
)

// ErrInvalidPID is returned for pids outside 1..MaxInt32.
var ErrInvalidPID = errors.New("invalid pid")

// ErrNoPID is returned when the OS started the command but reported no pid.
var ErrNoPID = errors.New("spawned process has no pid")

// ErrNotRunning is returned by Kill when neither the group nor the pid exists.
var ErrNotRunning = errors.New("process not running")

// ExitFunc observes a child's exit. It runs on the goroutine that reaped it.
type ExitFunc func(pid int, err error, ranFor time.Duration)

// Exec spawns and signals real OS processes.
type Exec struct {
	// Shell overrides the platform shell ("sh" or "cmd.exe").
	Shell  string
	OnExit ExitFunc
	logger *slog.Logger
}

func New(shell string, onExit ExitFunc) *Exec {
	return &Exec{Shell: shell, OnExit: onExit, logger: log.WithComponent("procexec")}
}

// SpawnDetached runs command through the platform shell in dir, in a new
// session with stdio discarded, and returns as soon as the child exists.
// A background goroutine waits on the child so it never lingers as a zombie;
// it does not touch any registry.
func (e *Exec) SpawnDetached(command, dir string) (int, error) {
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return 0, fmt.Errorf("working directory: %w", err)
		}
		if !info.IsDir() {
			return 0, fmt.Errorf("working directory %s: not a directory", dir)
		}
	}

	cmd := shellCommand(e.Shell, command)
	cmd.Dir = dir
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	detach(cmd)

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	if cmd.Process == nil || cmd.Process.Pid <= 0 {
		return 0, ErrNoPID
	}
	pid := cmd.Process.Pid

	go e.wait(cmd, pid, started)
	return pid, nil
}

func (e *Exec) wait(cmd *exec.Cmd, pid int, started time.Time) {
	err := cmd.Wait()
	ranFor := time.Since(started)
	if e.logger != nil {
		e.logger.Debug("child exited", "pid", pid, "ran_for", ranFor.String(), "error", err)
	}
	if e.OnExit != nil {
		e.OnExit(pid, err, ranFor)
	}
}

// Kill force-terminates pid's process group, falling back to pid alone.
func (e *Exec) Kill(pid int) error {
	if !validPID(pid) {
		return fmt.Errorf("%w: %d", ErrInvalidPID, pid)
	}
	return killTree(pid)
}

func validPID(pid int) bool {
	return pid > 0 && pid <= math.MaxInt32
}
