package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/mgit/internal/commands"
	"github.com/ShayCichocki/mgit/internal/config"
	"github.com/ShayCichocki/mgit/internal/orchestrator"
	"github.com/ShayCichocki/mgit/internal/state"
)

func init() {
	color.NoColor = true
}

// stubCommand succeeds for every package except those listed in fail.
type stubCommand struct {
	fail map[string]bool
}

func (s *stubCommand) Name() string                   { return "stub" }
func (s *stubCommand) BeforeExecute(_ []string) error { return nil }
func (s *stubCommand) Execute(_ context.Context, task commands.Task, _ commands.DirectoryContext) commands.Response {
	if s.fail[task.PackageName] {
		return commands.NewResponse(task.PackageName, commands.Failure{Message: "Error: boom"})
	}
	return commands.NewResponse(task.PackageName, commands.Success{Output: "ok " + task.PackageName})
}

// setupProject writes an mgit.json into a fresh project root and points
// --cwd at it.
func setupProject(t *testing.T, manifest string) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, config.ManifestName), []byte(manifest), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	prev := flagCwd
	flagCwd = root
	t.Cleanup(func() { flagCwd = prev })
	return root
}

func newTestCommand(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetContext(context.Background())
	return cmd
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"exit error", &exitError{code: 3}, 3},
		{"usage error", &commands.UsageError{Message: "usage", Err: commands.ErrMissingCommand}, 1},
		{"other error", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestCommandLine(t *testing.T) {
	tests := []struct {
		command string
		args    []string
		want    string
	}{
		{"bootstrap", nil, "bootstrap"},
		{"exec", []string{"git", "status"}, "exec git status"},
		{"exec", []string{"echo", "a b"}, "exec echo 'a b'"},
	}

	for _, tt := range tests {
		if got := commandLine(tt.command, tt.args); got != tt.want {
			t.Errorf("commandLine(%q, %q) = %q, want %q", tt.command, tt.args, got, tt.want)
		}
	}
}

func TestResultLine(t *testing.T) {
	if got := resultLine(0, nil); !strings.Contains(got, "No packages matched") {
		t.Errorf("empty run: %q", got)
	}
	if got := resultLine(2, nil); got != "✓ 2 of 2 packages succeeded." {
		t.Errorf("success: %q", got)
	}
	if got := resultLine(3, []string{"a", "c"}); got != "✗ 2 of 3 packages failed: a, c" {
		t.Errorf("failure: %q", got)
	}
}

func TestPrintReport(t *testing.T) {
	report := &orchestrator.Report{
		RunID:     "abcd1234",
		Command:   "exec",
		Arguments: []string{"pwd"},
		Responses: []commands.Response{
			commands.NewResponse("a", commands.Success{Output: "/work/packages/a"}),
			commands.NewResponse("b", commands.Unavailable{Message: `Package "b" is not available.`}),
		},
		Duration: 1500 * time.Millisecond,
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()

	for _, want := range []string{
		"#### a\n/work/packages/a\n",
		"#### b\nPackage \"b\" is not available.\n",
		"abcd1234",
		"exec pwd",
		"1.5s",
		"✗ 1 of 2 packages failed: b",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "#### a") > strings.Index(out, "#### b") {
		t.Error("packages printed out of order")
	}
}

func TestApplyFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&flagPackages, "packages", "", "")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "")
	cmd.Flags().StringSliceVar(&flagIgnore, "ignore", nil, "")
	cmd.Flags().StringSliceVar(&flagScope, "scope", nil, "")
	t.Cleanup(func() {
		flagPackages, flagConcurrency, flagIgnore, flagScope = "", 0, nil, nil
	})

	if err := cmd.ParseFlags([]string{"--concurrency", "4", "--scope", "@acme/*"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	cfg := config.Default()
	cfg.Packages = "vendor"
	cfg.Ignore = []string{"legacy"}
	applyFlags(cmd, cfg)

	if cfg.Concurrency != 4 {
		t.Errorf("concurrency = %d, want 4", cfg.Concurrency)
	}
	if len(cfg.Scope) != 1 || cfg.Scope[0] != "@acme/*" {
		t.Errorf("scope = %v", cfg.Scope)
	}
	if cfg.Packages != "vendor" {
		t.Errorf("unset flag overrode packages: %q", cfg.Packages)
	}
	if len(cfg.Ignore) != 1 || cfg.Ignore[0] != "legacy" {
		t.Errorf("unset flag overrode ignore: %v", cfg.Ignore)
	}
}

func TestLoadProject_RequiresManifest(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	prev := flagCwd
	flagCwd = t.TempDir()
	t.Cleanup(func() { flagCwd = prev })

	_, err := loadProject(&cobra.Command{})
	if !errors.Is(err, config.ErrNoManifest) {
		t.Fatalf("expected ErrNoManifest, got %v", err)
	}
}

func TestRunCommand_RecordsHistory(t *testing.T) {
	root := setupProject(t, `{"dependencies": {"a": "org/a", "b": "org/b"}}`)

	var buf bytes.Buffer
	err := runCommand(newTestCommand(&buf), &stubCommand{}, []string{"stub"})
	if err != nil {
		t.Fatalf("runCommand: %v", err)
	}
	if !strings.Contains(buf.String(), "ok a") || !strings.Contains(buf.String(), "ok b") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	if _, err := os.Stat(state.ProjectDBPath(root)); err != nil {
		t.Fatalf("history database not created: %v", err)
	}

	var history bytes.Buffer
	if err := runHistory(newTestCommand(&history), nil); err != nil {
		t.Fatalf("runHistory: %v", err)
	}
	if !strings.Contains(history.String(), "stub") || !strings.Contains(history.String(), "succeeded") {
		t.Errorf("history missing run:\n%s", history.String())
	}
}

func TestRunCommand_FailureExitCode(t *testing.T) {
	setupProject(t, `{"dependencies": {"a": "org/a", "b": "org/b"}, "history": {"enabled": false}}`)

	var buf bytes.Buffer
	err := runCommand(newTestCommand(&buf), &stubCommand{fail: map[string]bool{"b": true}}, []string{"stub"})

	var exit *exitError
	if !errors.As(err, &exit) || exit.code != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
	if !strings.Contains(buf.String(), "Error: boom") {
		t.Errorf("failure not printed:\n%s", buf.String())
	}
}

func TestRunHistory_Empty(t *testing.T) {
	setupProject(t, `{}`)

	var buf bytes.Buffer
	if err := runHistory(newTestCommand(&buf), nil); err != nil {
		t.Fatalf("runHistory: %v", err)
	}
	if !strings.Contains(buf.String(), "No runs recorded yet.") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestConfigCommand_SetAndGet(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	prev := flagCwd
	flagCwd = t.TempDir()
	t.Cleanup(func() { flagCwd = prev })

	var set bytes.Buffer
	if err := configCmd.RunE(newTestCommand(&set), []string{"concurrency", "3"}); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if set.String() != "✓ Set concurrency = 3\n" {
		t.Errorf("set output = %q", set.String())
	}
	if _, err := os.Stat(filepath.Join(xdg, "mgit", "config.yaml")); err != nil {
		t.Fatalf("user config not written: %v", err)
	}

	var get bytes.Buffer
	if err := configCmd.RunE(newTestCommand(&get), []string{"concurrency"}); err != nil {
		t.Fatalf("config get: %v", err)
	}
	if get.String() != "3\n" {
		t.Errorf("get output = %q, want %q", get.String(), "3\n")
	}
}

func TestConfigCommand_RejectsUnknownKey(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	prev := flagCwd
	flagCwd = t.TempDir()
	t.Cleanup(func() { flagCwd = prev })

	var buf bytes.Buffer
	if err := configCmd.RunE(newTestCommand(&buf), []string{"nope", "1"}); err == nil {
		t.Error("expected error for unknown key")
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
}
