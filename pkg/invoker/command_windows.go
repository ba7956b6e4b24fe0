//go:build windows

package invoker

import (
	"context"
	"os/exec"

	"golang.org/x/sys/windows"
)

// createCommand creates an exec.Cmd for an invocation on Windows.
func (b *BatchInvoker) createCommand(ctx context.Context, command string) *exec.Cmd {
	cmd := b.commandContext(ctx, "cmd", "/C", command)
	// On Windows, create a new process group to ensure that when the context is
	// canceled, the entire process tree is terminated, not just the parent cmd.
	// This is crucial for killing child processes spawned by the external tool.
	cmd.SysProcAttr = &windows.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
	return cmd
}
