// Package orchestrator runs a command across every package of a project.
//
// It turns the manifest's dependencies into tasks, executes them with bounded
// concurrency, gathers the responses in a stable order and records the run in
// the execution history.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/mgit/internal/commands"
	"github.com/ShayCichocki/mgit/internal/repository"
	"github.com/ShayCichocki/mgit/internal/state"
)

// Config holds everything a run needs.
type Config struct {
	// Options are the invocation-wide settings copied into every task.
	Options commands.Options
	// Dependencies maps package names to org/repo[#branch] specs.
	Dependencies map[string]string
	// Resolver turns specs into repositories. Defaults are used when nil.
	Resolver *repository.Resolver
	// Concurrency is the maximum number of packages processed at once.
	// Values below 1 mean 1.
	Concurrency int
	// Ignore and Scope are glob patterns matched against package names.
	Ignore []string
	Scope  []string
	// Logger receives debug output. May be nil.
	Logger *DebugLogger
	// History records runs when set.
	History state.RunStore
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFs sets the filesystem used for per-task virtual directories.
func WithFs(fs afero.Fs) Option {
	return func(o *Orchestrator) { o.fs = fs }
}

// WithDirectory makes every task use the given directory context instead of
// the one picked from the concurrency setting.
func WithDirectory(fn func(task commands.Task) commands.DirectoryContext) Option {
	return func(o *Orchestrator) { o.directory = fn }
}

// Orchestrator executes commands across packages.
type Orchestrator struct {
	cfg       Config
	fs        afero.Fs
	directory func(task commands.Task) commands.DirectoryContext
	now       func() time.Time
}

// New creates an Orchestrator.
func New(cfg Config, opts ...Option) *Orchestrator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Resolver == nil {
		cfg.Resolver = repository.NewResolver("", "")
	}

	o := &Orchestrator{
		cfg: cfg,
		fs:  afero.NewOsFs(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.directory == nil {
		o.directory = o.defaultDirectory()
	}
	return o
}

// defaultDirectory picks the directory context policy. A single worker whose
// process directory is the invocation root switches the real process
// directory; anything else gets an isolated virtual directory per task.
func (o *Orchestrator) defaultDirectory() func(commands.Task) commands.DirectoryContext {
	if o.cfg.Concurrency == 1 && isProcessCwd(o.cfg.Options.Cwd) {
		return func(commands.Task) commands.DirectoryContext {
			return commands.Process()
		}
	}
	return func(task commands.Task) commands.DirectoryContext {
		return commands.NewVirtualDirectory(o.fs, task.Options.Cwd)
	}
}

func isProcessCwd(dir string) bool {
	wd, err := os.Getwd()
	if err != nil {
		return false
	}
	a, errA := filepath.EvalSymlinks(wd)
	b, errB := filepath.EvalSymlinks(dir)
	if errA != nil || errB != nil {
		return filepath.Clean(wd) == filepath.Clean(dir)
	}
	return a == b
}

// Tasks resolves the configured dependencies into tasks carrying arguments,
// filtered by scope and ignore patterns and sorted by package name.
func (o *Orchestrator) Tasks(arguments []string) ([]commands.Task, error) {
	names := make([]string, 0, len(o.cfg.Dependencies))
	for name := range o.cfg.Dependencies {
		selected, err := o.selected(name)
		if err != nil {
			return nil, err
		}
		if selected {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	tasks := make([]commands.Task, 0, len(names))
	for _, name := range names {
		info, err := o.cfg.Resolver.Resolve(name, o.cfg.Dependencies[name])
		if err != nil {
			return nil, fmt.Errorf("resolve package %q: %w", name, err)
		}
		tasks = append(tasks, commands.Task{
			PackageName: name,
			Options:     o.cfg.Options,
			Repository: commands.Repository{
				Directory: info.Directory,
				URL:       info.URL,
				Branch:    info.Branch,
			},
			Arguments: append([]string(nil), arguments...),
		})
	}
	return tasks, nil
}

// selected reports whether name passes the scope and ignore filters.
func (o *Orchestrator) selected(name string) (bool, error) {
	if len(o.cfg.Scope) > 0 {
		ok, err := matchAny(o.cfg.Scope, name)
		if err != nil {
			return false, fmt.Errorf("scope: %w", err)
		}
		if !ok {
			return false, nil
		}
	}
	ignored, err := matchAny(o.cfg.Ignore, name)
	if err != nil {
		return false, fmt.Errorf("ignore: %w", err)
	}
	return !ignored, nil
}

func matchAny(patterns []string, name string) (bool, error) {
	for _, p := range patterns {
		ok, err := filepath.Match(p, name)
		if err != nil {
			return false, fmt.Errorf("pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Run validates args with cmd, executes it for every selected package and
// returns the collected report. args starts with the subcommand token.
//
// Only validation and task resolution errors are returned; per-package
// failures are part of the report.
func (o *Orchestrator) Run(ctx context.Context, cmd commands.Command, args []string) (*Report, error) {
	if err := cmd.BeforeExecute(args); err != nil {
		return nil, err
	}

	var arguments []string
	if len(args) > 1 {
		arguments = args[1:]
	}

	tasks, err := o.Tasks(arguments)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.New().String()[:8],
		Command:   cmd.Name(),
		Arguments: append([]string(nil), arguments...),
		Responses: make([]commands.Response, len(tasks)),
		StartedAt: o.now(),
	}
	o.cfg.Logger.Log("[run %s] %s %v: %d package(s), concurrency %d",
		report.RunID, report.Command, report.Arguments, len(tasks), o.cfg.Concurrency)

	o.startRecord(report)

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)
	for i, task := range tasks {
		g.Go(func() error {
			report.Responses[i] = o.execute(ctx, cmd, task)
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = o.now().Sub(report.StartedAt)
	o.cfg.Logger.Log("[run %s] finished in %s, %d failed", report.RunID, report.Duration, len(report.Failed()))

	o.finishRecord(ctx, report)
	return report, nil
}

// execute runs one task, short-circuiting when the run was cancelled.
func (o *Orchestrator) execute(ctx context.Context, cmd commands.Command, task commands.Task) commands.Response {
	if err := ctx.Err(); err != nil {
		o.cfg.Logger.Log("[task %s] skipped: %v", task.PackageName, err)
		return commands.NewResponse(task.PackageName, commands.Failure{Message: "Error: " + err.Error()})
	}

	start := o.now()
	resp := cmd.Execute(ctx, task, o.directory(task))
	o.cfg.Logger.Log("[task %s] %s in %s", task.PackageName, kindOf(resp), o.now().Sub(start))
	return resp
}

func (o *Orchestrator) startRecord(report *Report) {
	if o.cfg.History == nil {
		return
	}
	if err := o.cfg.History.StartRun(report.record(state.RunRunning)); err != nil {
		o.cfg.Logger.Log("[run %s] record start: %v", report.RunID, err)
	}
}

func (o *Orchestrator) finishRecord(ctx context.Context, report *Report) {
	if o.cfg.History == nil {
		return
	}
	status := state.RunSucceeded
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		status = state.RunInterrupted
	case len(report.Failed()) > 0:
		status = state.RunFailed
	}
	if err := o.cfg.History.FinishRun(report.record(status)); err != nil {
		o.cfg.Logger.Log("[run %s] record finish: %v", report.RunID, err)
	}
}

func kindOf(resp commands.Response) string {
	if resp.Outcome == nil {
		return "unknown"
	}
	return string(resp.Outcome.Kind())
}
