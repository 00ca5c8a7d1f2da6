//go:build windows

package tools

import "os/exec"

const (
	shellPath = "cmd"
	shellFlag = "/c"
)

func configureProcessGroup(cmd *exec.Cmd) {}
