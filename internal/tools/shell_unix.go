//go:build !windows

package tools

import (
	"os/exec"
	"syscall"
)

const (
	shellPath = "sh"
	shellFlag = "-c"
)

// configureProcessGroup starts the command in its own process group so that
// cancellation kills every child it spawned.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
