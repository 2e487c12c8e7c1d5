//go:build windows

package engine

import (
	"os/exec"
	"syscall"
)

const createNewProcessGroup = 0x00000200

// configureProcAttrs places the child in its own process group so taskkill
// /T can reach the whole tree the job spawned.
func configureProcAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
}
