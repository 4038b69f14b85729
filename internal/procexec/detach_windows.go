//go:build windows

package procexec

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/windows"
)

const defaultShell = "cmd.exe"

func shellCommand(shell, command string) *exec.Cmd {
	if shell == "" {
		shell = defaultShell
	}
	return exec.Command(shell, "/C", command)
}

func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
		HideWindow:    true,
	}
}

// killTree kills pid and every descendant. cmd.exe does not forward
// termination to the tool it started, so killing the shell alone would leave
// the tool running.
func killTree(pid int) error {
	if !Alive(pid) {
		return ErrNotRunning
	}
	tk := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid))
	tk.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	if err := tk.Run(); err == nil {
		return nil
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return ErrNotRunning
	}
	return p.Kill()
}

// Alive reports whether pid still exists.
func Alive(pid int) bool {
	if !validPID(pid) {
		return false
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)
	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == 259 // STILL_ACTIVE
}
