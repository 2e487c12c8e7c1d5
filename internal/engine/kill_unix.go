//go:build !windows

package engine

import (
	"os/exec"
	"syscall"
)

// terminateTree sends sig to the whole process group of cmd, not just the
// shell itself, so children the job spawned are reached too.
func terminateTree(cmd *exec.Cmd, sig syscall.Signal) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, sig)
}

func terminateSignal() syscall.Signal { return syscall.SIGTERM }
func killSignal() syscall.Signal      { return syscall.SIGKILL }
