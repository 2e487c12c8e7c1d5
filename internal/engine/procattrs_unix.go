//go:build !windows

package engine

import (
	"os/exec"
	"syscall"
)

// configureProcAttrs places the child in its own process group so a timeout
// or manual kill can take down everything it spawned, not just the shell.
func configureProcAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
