//go:build windows

package process

import (
	"os/exec"
	"strconv"
	"syscall"
)

// Isolate starts the command in a new process group so that taskkill /T
// can find its descendants.
func Isolate(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
}

// KillGroup kills a process and all its children using taskkill.
// /F = force kill, /T = terminate child processes (tree kill).
func KillGroup(pid int) error {
	if pid <= 0 {
		return nil
	}
	// taskkill exits non-zero when the tree is already gone; the caller
	// falls back to Process.Kill either way.
	_ = exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(pid)).Run()
	return nil
}
