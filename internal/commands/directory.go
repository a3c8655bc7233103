package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// DirectoryContext is the working directory a command executes in.
//
// Implementations that also satisfy sync.Locker are held locked by Execute
// for the whole enter, run and restore window, so executions sharing the
// context never observe each other's directory.
type DirectoryContext interface {
	Getwd() (string, error)
	Chdir(dir string) error
}

// ProcessDirectory is the working directory of the running process.
// There is one per process; obtain it with Process.
type ProcessDirectory struct {
	mu sync.Mutex
}

var processDirectory = &ProcessDirectory{}

// Process returns the shared context for the process working directory.
func Process() *ProcessDirectory {
	return processDirectory
}

func (p *ProcessDirectory) Lock()   { p.mu.Lock() }
func (p *ProcessDirectory) Unlock() { p.mu.Unlock() }

func (p *ProcessDirectory) Getwd() (string, error) {
	return os.Getwd()
}

func (p *ProcessDirectory) Chdir(dir string) error {
	return os.Chdir(dir)
}

// VirtualDirectory tracks a working directory without touching the process.
// Each concurrently running task gets its own instance; the directory is
// handed to the process runner explicitly.
type VirtualDirectory struct {
	mu  sync.Mutex
	fs  afero.Fs
	cwd string
}

// NewVirtualDirectory returns a context whose current directory is root.
func NewVirtualDirectory(fs afero.Fs, root string) *VirtualDirectory {
	return &VirtualDirectory{fs: fs, cwd: filepath.Clean(root)}
}

func (v *VirtualDirectory) Getwd() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cwd, nil
}

// Chdir changes the tracked directory. Relative paths resolve against the
// current one, like os.Chdir.
func (v *VirtualDirectory) Chdir(dir string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	target := dir
	if !filepath.IsAbs(target) {
		target = filepath.Join(v.cwd, target)
	}

	ok, err := afero.DirExists(v.fs, target)
	if err != nil {
		return &os.PathError{Op: "chdir", Path: dir, Err: err}
	}
	if !ok {
		return &os.PathError{Op: "chdir", Path: dir, Err: os.ErrNotExist}
	}

	v.cwd = filepath.Clean(target)
	return nil
}

// enter switches dir into target and returns a function that switches it
// back to the directory that was current before.
func enter(dir DirectoryContext, previous, target string) (restore func() error, err error) {
	if err := dir.Chdir(target); err != nil {
		return nil, fmt.Errorf("enter package directory: %w", err)
	}
	return func() error {
		if err := dir.Chdir(previous); err != nil {
			return fmt.Errorf("restore working directory %s: %w", previous, err)
		}
		return nil
	}, nil
}

var (
	_ DirectoryContext = (*ProcessDirectory)(nil)
	_ DirectoryContext = (*VirtualDirectory)(nil)
	_ sync.Locker      = (*ProcessDirectory)(nil)
)
