//go:build !windows

package engine

import (
	"context"
	"os/exec"
)

// shellCommand wraps command in the platform's shell so job authors can use
// pipes, redirects, and globs the way they would on an interactive terminal.
func shellCommand(ctx context.Context, command string) *exec.Cmd {
	// #nosec G204 -- command is operator-supplied job configuration, not untrusted input.
	return exec.CommandContext(ctx, "/bin/sh", "-c", command)
}
