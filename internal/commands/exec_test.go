package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/mgit/internal/exec"
)

const testRoot = "/work"

type shellCall struct {
	workDir string
	command string
}

// fakeRunner returns a fixed result and records every shell invocation.
type fakeRunner struct {
	mu     sync.Mutex
	output string
	err    error
	calls  []shellCall
	onRun  func(workDir string)
}

func (f *fakeRunner) RunShell(_ context.Context, workDir string, command string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, shellCall{workDir: workDir, command: command})
	f.mu.Unlock()
	if f.onRun != nil {
		f.onRun(workDir)
	}
	return []byte(f.output), f.err
}

// recordingDir is a DirectoryContext that records every Chdir.
type recordingDir struct {
	cwd       string
	chdirs    []string
	failChdir map[string]error
}

func newRecordingDir(cwd string) *recordingDir {
	return &recordingDir{cwd: cwd, failChdir: map[string]error{}}
}

func (d *recordingDir) Getwd() (string, error) {
	return d.cwd, nil
}

func (d *recordingDir) Chdir(dir string) error {
	d.chdirs = append(d.chdirs, dir)
	if err, ok := d.failChdir[dir]; ok {
		return err
	}
	if filepath.IsAbs(dir) {
		d.cwd = dir
	} else {
		d.cwd = filepath.Join(d.cwd, dir)
	}
	return nil
}

func newTask() Task {
	return Task{
		PackageName: "test-package",
		Options: Options{
			Cwd:         testRoot,
			PackagesDir: "packages",
		},
		Repository: Repository{Directory: "test-package"},
		Arguments:  []string{"pwd"},
	}
}

func memFsWithPackage(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(filepath.Join(testRoot, "packages", "test-package"), 0755))
	return fs
}

func TestExec_Name(t *testing.T) {
	assert.Equal(t, "exec", NewExec(&fakeRunner{}, afero.NewMemMapFs()).Name())
}

func TestExec_BeforeExecute(t *testing.T) {
	cmd := NewExec(&fakeRunner{}, afero.NewMemMapFs())

	t.Run("missing command", func(t *testing.T) {
		err := cmd.BeforeExecute([]string{"exec"})
		require.Error(t, err)
		assert.EqualError(t, err, "Missing command to execute. Use: mgit exec [command-to-execute].")
		assert.ErrorIs(t, err, ErrMissingCommand)
		assert.True(t, IsUsageError(err))
	})

	t.Run("command given", func(t *testing.T) {
		assert.NoError(t, cmd.BeforeExecute([]string{"exec", "pwd"}))
	})

	t.Run("command with arguments", func(t *testing.T) {
		assert.NoError(t, cmd.BeforeExecute([]string{"exec", "git", "status", "--short"}))
	})
}

func TestExec_Execute_PackageNotAvailable(t *testing.T) {
	runner := &fakeRunner{}
	dir := newRecordingDir(testRoot)
	cmd := NewExec(runner, afero.NewMemMapFs())

	resp := cmd.Execute(context.Background(), newTask(), dir)

	assert.Equal(t, []string{
		`Package "test-package" is not available. Run "mgit bootstrap" in order to download the package.`,
	}, resp.Logs.Error)
	assert.Empty(t, resp.Logs.Info)
	assert.Equal(t, OutcomeUnavailable, resp.Outcome.Kind())
	assert.Empty(t, dir.chdirs, "directory must not change")
	assert.Empty(t, runner.calls, "runner must not be invoked")
	assert.Equal(t, testRoot, dir.cwd)
}

func TestExec_Execute_CommandFails(t *testing.T) {
	runner := &fakeRunner{err: errors.New("Unexpected error.")}
	dir := newRecordingDir(testRoot)
	cmd := NewExec(runner, memFsWithPackage(t))

	resp := cmd.Execute(context.Background(), newTask(), dir)

	assert.Equal(t, []string{"packages/test-package", testRoot}, dir.chdirs)
	require.Len(t, resp.Logs.Error, 1)
	assert.Equal(t, "Error: Unexpected error.", strings.Split(resp.Logs.Error[0], "\n")[0])
	assert.Empty(t, resp.Logs.Info)
	assert.Equal(t, OutcomeFailure, resp.Outcome.Kind())
	assert.True(t, resp.Failed())
	assert.Equal(t, testRoot, dir.cwd)
}

func TestExec_Execute_CommandFailsKeepsDetailLines(t *testing.T) {
	runner := &fakeRunner{err: &exec.CommandError{
		Command:  "npm test",
		ExitCode: 1,
		Output:   "line one\nline two\n",
	}}
	cmd := NewExec(runner, memFsWithPackage(t))

	resp := cmd.Execute(context.Background(), newTask(), newRecordingDir(testRoot))

	require.Len(t, resp.Logs.Error, 1)
	lines := strings.Split(resp.Logs.Error[0], "\n")
	assert.Equal(t, []string{
		`Error: Command "npm test" failed with exit status 1`,
		"line one",
		"line two",
	}, lines)
}

func TestExec_Execute_CommandSucceeds(t *testing.T) {
	runner := &fakeRunner{output: "/packages/test-package\n"}
	dir := newRecordingDir(testRoot)
	cmd := NewExec(runner, memFsWithPackage(t))

	resp := cmd.Execute(context.Background(), newTask(), dir)

	assert.Equal(t, []string{"packages/test-package", testRoot}, dir.chdirs)
	assert.Equal(t, []string{"/packages/test-package"}, resp.Logs.Info)
	assert.Empty(t, resp.Logs.Error)
	assert.False(t, resp.Failed())
	assert.Equal(t, testRoot, dir.cwd)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, filepath.Join(testRoot, "packages", "test-package"), runner.calls[0].workDir)
	assert.Equal(t, "pwd", runner.calls[0].command)
}

func TestExec_Execute_QuotesMultipleArguments(t *testing.T) {
	runner := &fakeRunner{}
	cmd := NewExec(runner, memFsWithPackage(t))
	task := newTask()
	task.Arguments = []string{"git", "commit", "-m", "two words"}

	cmd.Execute(context.Background(), task, newRecordingDir(testRoot))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "git commit -m 'two words'", runner.calls[0].command)
}

func TestExec_Execute_Idempotent(t *testing.T) {
	runner := &fakeRunner{output: "same"}
	cmd := NewExec(runner, memFsWithPackage(t))
	dir := newRecordingDir(testRoot)

	first := cmd.Execute(context.Background(), newTask(), dir)
	second := cmd.Execute(context.Background(), newTask(), dir)

	assert.Equal(t, first, second)
	assert.Equal(t, testRoot, dir.cwd)
}

func TestExec_Execute_EnterFails(t *testing.T) {
	runner := &fakeRunner{}
	dir := newRecordingDir(testRoot)
	dir.failChdir["packages/test-package"] = os.ErrPermission
	cmd := NewExec(runner, memFsWithPackage(t))

	resp := cmd.Execute(context.Background(), newTask(), dir)

	require.Len(t, resp.Logs.Error, 1)
	assert.True(t, strings.HasPrefix(resp.Logs.Error[0], "Error: enter package directory"))
	assert.Empty(t, runner.calls)
	assert.Equal(t, []string{"packages/test-package"}, dir.chdirs)
	assert.Equal(t, testRoot, dir.cwd)
}

func TestExec_Execute_RestoreFails(t *testing.T) {
	runner := &fakeRunner{output: "ok"}
	dir := newRecordingDir(testRoot)
	dir.failChdir[testRoot] = os.ErrPermission
	cmd := NewExec(runner, memFsWithPackage(t))

	resp := cmd.Execute(context.Background(), newTask(), dir)

	assert.Empty(t, resp.Logs.Info)
	require.Len(t, resp.Logs.Error, 1)
	assert.True(t, strings.HasPrefix(resp.Logs.Error[0], "Error: restore working directory"))
}

func TestExec_Execute_VirtualDirectory(t *testing.T) {
	fs := memFsWithPackage(t)
	runner := &fakeRunner{output: "done"}
	cmd := NewExec(runner, fs)
	dir := NewVirtualDirectory(fs, testRoot)

	resp := cmd.Execute(context.Background(), newTask(), dir)

	assert.Equal(t, []string{"done"}, resp.Logs.Info)
	wd, err := dir.Getwd()
	require.NoError(t, err)
	assert.Equal(t, testRoot, wd)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, filepath.Join(testRoot, "packages", "test-package"), runner.calls[0].workDir)
}

func TestExec_Execute_ProcessDirectory(t *testing.T) {
	root := t.TempDir()
	pkgDir := filepath.Join(root, "packages", "pkg-a")
	require.NoError(t, os.MkdirAll(pkgDir, 0755))
	t.Chdir(root)

	before, err := os.Getwd()
	require.NoError(t, err)

	cmd := NewExec(exec.NewRunnerWithShell("/bin/sh"), afero.NewOsFs())
	task := Task{
		PackageName: "pkg-a",
		Options:     Options{Cwd: root, PackagesDir: "packages"},
		Repository:  Repository{Directory: "pkg-a"},
		Arguments:   []string{"pwd"},
	}

	resp := cmd.Execute(context.Background(), task, Process())

	require.Empty(t, resp.Logs.Error)
	require.Len(t, resp.Logs.Info, 1)
	assert.True(t, strings.HasSuffix(resp.Logs.Info[0], filepath.Join("packages", "pkg-a")),
		"unexpected pwd output %q", resp.Logs.Info[0])

	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestExec_Execute_ProcessDirectorySerializesConcurrentTasks(t *testing.T) {
	root := t.TempDir()
	names := []string{"a", "b", "c", "d"}
	for _, name := range names {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "packages", name), 0755))
	}
	t.Chdir(root)
	before, err := os.Getwd()
	require.NoError(t, err)

	var mismatchMu sync.Mutex
	var mismatches []string
	runner := &fakeRunner{onRun: func(workDir string) {
		wd, _ := os.Getwd()
		if wd != workDir {
			mismatchMu.Lock()
			mismatches = append(mismatches, wd+" != "+workDir)
			mismatchMu.Unlock()
		}
	}}
	cmd := NewExec(runner, afero.NewOsFs())

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			task := Task{
				PackageName: name,
				Options:     Options{Cwd: root, PackagesDir: "packages"},
				Repository:  Repository{Directory: name},
				Arguments:   []string{"true"},
			}
			resp := cmd.Execute(context.Background(), task, Process())
			assert.False(t, resp.Failed(), "package %s failed: %v", name, resp.Logs.Error)
		}(name)
	}
	wg.Wait()

	assert.Empty(t, mismatches)
	after, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
