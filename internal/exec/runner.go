package exec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
)

// CommandError describes a command that could not be started or exited non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

// Error returns the failure summary followed by the captured output, if any.
func (e *CommandError) Error() string {
	var sb strings.Builder
	if e.ExitCode > 0 {
		fmt.Fprintf(&sb, "Command %q failed with exit status %d", e.Command, e.ExitCode)
	} else {
		fmt.Fprintf(&sb, "Command %q failed: %v", e.Command, e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		sb.WriteString("\n")
		sb.WriteString(out)
	}
	return sb.String()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct {
	shell string
}

// NewRunner creates a new ExecRunner using $SHELL, falling back to /bin/sh.
func NewRunner() *ExecRunner {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &ExecRunner{shell: shell}
}

// NewRunnerWithShell creates an ExecRunner that runs command lines through shell.
func NewRunnerWithShell(shell string) *ExecRunner {
	return &ExecRunner{shell: shell}
}

// RunShell executes a command line through "<shell> -c".
func (r *ExecRunner) RunShell(ctx context.Context, workDir string, command string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.shell, "-c", command)
	if workDir != "" {
		cmd.Dir = workDir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, newCommandError(command, out, err)
	}
	return out, nil
}

func newCommandError(command string, out []byte, err error) *CommandError {
	cmdErr := &CommandError{Command: command, Output: string(out), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	return cmdErr
}

// ShellLine turns a command vector into a single shell command line.
// A single token is passed through untouched so that "git status && ls" keeps
// its shell operators; multiple tokens are quoted so each stays one word.
func ShellLine(args []string) string {
	switch len(args) {
	case 0:
		return ""
	case 1:
		return args[0]
	default:
		return shellquote.Join(args...)
	}
}

// Verify ExecRunner implements CommandRunner at compile time.
var _ CommandRunner = (*ExecRunner)(nil)
