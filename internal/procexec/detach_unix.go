//go:build !windows

package procexec

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

const defaultShell = "sh"

func shellCommand(shell, command string) *exec.Cmd {
	if shell == "" {
		shell = defaultShell
	}
	return exec.Command(shell, "-c", command)
}

// detach starts the child as leader of a new session so it survives the
// parent's terminal and can be killed as a group.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

func killTree(pid int) error {
	groupErr := unix.Kill(-pid, unix.SIGKILL)
	if groupErr == nil {
		return nil
	}
	err := unix.Kill(pid, unix.SIGKILL)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ESRCH) {
		return ErrNotRunning
	}
	return err
}

// Alive reports whether pid still exists. Zombies count as alive.
func Alive(pid int) bool {
	if !validPID(pid) {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
