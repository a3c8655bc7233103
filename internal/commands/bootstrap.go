package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/afero"
)

// CloneFunc clones repo into path.
type CloneFunc func(ctx context.Context, path string, repo Repository) error

// Bootstrap clones every package that is not yet available locally.
type Bootstrap struct {
	fs    afero.Fs
	clone CloneFunc
}

// NewBootstrap creates the bootstrap command backed by go-git.
func NewBootstrap(fs afero.Fs) *Bootstrap {
	return &Bootstrap{fs: fs, clone: gitClone}
}

// NewBootstrapWithCloner creates the bootstrap command with a custom clone step.
func NewBootstrapWithCloner(fs afero.Fs, clone CloneFunc) *Bootstrap {
	return &Bootstrap{fs: fs, clone: clone}
}

func (b *Bootstrap) Name() string {
	return "bootstrap"
}

// BeforeExecute accepts any input; bootstrap takes no arguments.
func (b *Bootstrap) BeforeExecute(args []string) error {
	return nil
}

// Execute clones the package unless its directory already exists.
// The directory context is only read; bootstrap never changes it.
func (b *Bootstrap) Execute(ctx context.Context, task Task, dir DirectoryContext) Response {
	return NewResponse(task.PackageName, b.run(ctx, task, dir))
}

func (b *Bootstrap) run(ctx context.Context, task Task, dir DirectoryContext) Outcome {
	wd, err := dir.Getwd()
	if err != nil {
		return failed(fmt.Errorf("get working directory: %w", err))
	}
	packagePath := resolve(wd, filepath.Join(task.Options.PackagesDir, task.Repository.Directory))

	exists, err := afero.Exists(b.fs, packagePath)
	if err != nil {
		return failed(fmt.Errorf("check package directory: %w", err))
	}
	if exists {
		return Success{Output: fmt.Sprintf("Package %q is already available.", task.PackageName)}
	}

	if task.Repository.URL == "" {
		return failed(fmt.Errorf("package %q has no repository URL", task.PackageName))
	}

	if err := b.fs.MkdirAll(filepath.Dir(packagePath), 0755); err != nil {
		return failed(fmt.Errorf("create packages directory: %w", err))
	}

	if err := b.clone(ctx, packagePath, task.Repository); err != nil {
		return failed(fmt.Errorf("clone %s: %w", task.Repository.URL, err))
	}

	return Success{Output: fmt.Sprintf("Package %q was cloned into %s.", task.PackageName, packagePath)}
}

func gitClone(ctx context.Context, path string, repo Repository) error {
	opts := &git.CloneOptions{
		URL:          repo.URL,
		SingleBranch: true,
	}
	if repo.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(repo.Branch)
	}
	_, err := git.PlainCloneContext(ctx, path, false, opts)
	return err
}

var _ Command = (*Bootstrap)(nil)
