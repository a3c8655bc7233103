package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/ShayCichocki/mgit/internal/exec"
)

// Exec runs an arbitrary shell command inside every package directory.
type Exec struct {
	runner exec.CommandRunner
	fs     afero.Fs
}

// NewExec creates the exec command. fs is used to check whether a package
// is checked out; pass afero.NewOsFs() outside of tests.
func NewExec(runner exec.CommandRunner, fs afero.Fs) *Exec {
	return &Exec{runner: runner, fs: fs}
}

// Name returns "exec".
func (e *Exec) Name() string {
	return "exec"
}

// BeforeExecute fails with a *UsageError when args holds nothing but the
// subcommand token.
func (e *Exec) BeforeExecute(args []string) error {
	if len(args) < 2 {
		return &UsageError{
			Message: "Missing command to execute. Use: mgit exec [command-to-execute].",
			Err:     ErrMissingCommand,
		}
	}
	return nil
}

// Execute runs task.Arguments inside the package directory and always
// restores dir to the directory it started in.
func (e *Exec) Execute(ctx context.Context, task Task, dir DirectoryContext) Response {
	return NewResponse(task.PackageName, e.run(ctx, task, dir))
}

func (e *Exec) run(ctx context.Context, task Task, dir DirectoryContext) (outcome Outcome) {
	if locker, ok := dir.(sync.Locker); ok {
		locker.Lock()
		defer locker.Unlock()
	}

	packagePath := filepath.Join(task.Options.PackagesDir, task.Repository.Directory)

	previous, err := dir.Getwd()
	if err != nil {
		return failed(fmt.Errorf("get working directory: %w", err))
	}

	exists, err := afero.Exists(e.fs, resolve(previous, packagePath))
	if err != nil {
		return failed(fmt.Errorf("check package directory: %w", err))
	}
	if !exists {
		return unavailable(task.PackageName)
	}

	restore, err := enter(dir, previous, packagePath)
	if err != nil {
		return failed(err)
	}
	defer func() {
		if err := restore(); err != nil {
			outcome = failed(err)
		}
	}()

	workDir, err := dir.Getwd()
	if err != nil {
		return failed(fmt.Errorf("get package directory: %w", err))
	}

	out, err := e.runner.RunShell(ctx, workDir, exec.ShellLine(task.Arguments))
	if err != nil {
		return failed(err)
	}
	return Success{Output: strings.TrimRight(string(out), "\r\n")}
}

// resolve makes p absolute against base unless it already is.
func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

var _ Command = (*Exec)(nil)
