//go:build windows

package runner

import (
	"os"
	"os/exec"
)

func isolateProcess(cmd *exec.Cmd) {}

func killProcessTree(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil || cmd.ProcessState != nil {
		return nil
	}
	return cmd.Process.Kill()
}

func exitStatus(state *os.ProcessState) int {
	return state.ExitCode()
}
