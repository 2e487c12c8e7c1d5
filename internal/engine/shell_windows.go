//go:build windows

package engine

import (
	"context"
	"os/exec"
)

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	// #nosec G204 -- command is operator-supplied job configuration, not untrusted input.
	return exec.CommandContext(ctx, "cmd", "/c", command)
}
