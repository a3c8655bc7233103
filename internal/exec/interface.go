// Package exec provides the process runner used to execute package commands.
package exec

import (
	"context"
)

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// RunShell executes a shell command line through the user's shell.
	// On failure the returned error is a *CommandError carrying the captured output.
	RunShell(ctx context.Context, workDir string, command string) (output []byte, err error)
}
