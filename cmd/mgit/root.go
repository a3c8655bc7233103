package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/mgit/internal/commands"
	"github.com/ShayCichocki/mgit/internal/config"
	"github.com/ShayCichocki/mgit/internal/orchestrator"
	"github.com/ShayCichocki/mgit/internal/state"
)

var (
	flagCwd         string
	flagPackages    string
	flagConcurrency int
	flagIgnore      []string
	flagScope       []string
	flagDebug       bool
	flagNoColor     bool
)

var rootCmd = &cobra.Command{
	Use:   "mgit",
	Short: "Multi-repository git helper",
	Long: `mgit runs commands across the packages listed in a project's mgit.json.

Every dependency in the manifest is a git repository checked out under the
packages directory. Use "mgit bootstrap" to clone missing packages and
"mgit exec" to run a shell command inside each of them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagNoColor {
			color.NoColor = true
		}
	},
}

// exitError carries a non-zero exit code for a run whose output was
// already printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the root command and exits with the resulting status.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode prints err when needed and maps it to a process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	var usage *commands.UsageError
	if errors.As(err, &usage) {
		errorColor.Fprintln(os.Stderr, usage.Message)
		return 1
	}
	errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagCwd, "cwd", "", "Project root containing mgit.json (default: current directory)")
	flags.StringVar(&flagPackages, "packages", "", "Directory holding the packages, relative to the project root")
	flags.IntVar(&flagConcurrency, "concurrency", 0, "Number of packages processed at once")
	flags.StringSliceVar(&flagIgnore, "ignore", nil, "Skip packages matching these glob patterns")
	flags.StringSliceVar(&flagScope, "scope", nil, "Only process packages matching these glob patterns")
	flags.BoolVar(&flagDebug, "debug", false, "Write a debug log to .mgit/logs/debug.log")
	flags.BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(bootstrapCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// project is a loaded mgit.json with command-line overrides applied.
type project struct {
	root string
	cfg  *config.Config
}

// projectRoot resolves the --cwd flag to an absolute path.
func projectRoot() (string, error) {
	root := flagCwd
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}
	return abs, nil
}

// loadProject loads the configuration and requires a manifest.
func loadProject(cmd *cobra.Command) (*project, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireManifest(root); err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)

	return &project{root: root, cfg: cfg}, nil
}

// applyFlags overrides configuration with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("packages") {
		cfg.Packages = flagPackages
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = flagConcurrency
	}
	if flags.Changed("ignore") {
		cfg.Ignore = flagIgnore
	}
	if flags.Changed("scope") {
		cfg.Scope = flagScope
	}
}

// openHistory opens the project's history database. A database that cannot
// be opened disables history for the run rather than failing it.
func openHistory(p *project, logger *orchestrator.DebugLogger) *state.DB {
	if !p.cfg.History.Enabled {
		return nil
	}

	db, err := state.OpenProject(p.root)
	if err != nil {
		logger.Log("[history] open: %v", err)
		return nil
	}
	if n, err := db.MarkInterruptedRuns(); err != nil {
		logger.Log("[history] mark interrupted runs: %v", err)
	} else if n > 0 {
		logger.Log("[history] marked %d run(s) as interrupted", n)
	}
	if p.cfg.History.Retention > 0 {
		if n, err := db.PurgeOldRuns(p.cfg.History.Retention); err != nil {
			logger.Log("[history] purge: %v", err)
		} else if n > 0 {
			logger.Log("[history] purged %d run(s)", n)
		}
	}
	return db
}

// runCommand executes command across the project's packages and prints the
// report. args starts with the subcommand token.
func runCommand(cmd *cobra.Command, command commands.Command, args []string) error {
	p, err := loadProject(cmd)
	if err != nil {
		return err
	}

	logger := orchestrator.NopLogger()
	if flagDebug {
		logger = orchestrator.NewDebugLoggerForProject(p.root)
	}
	defer logger.Close()

	cfg := orchestrator.Config{
		Options: commands.Options{
			Cwd:         p.root,
			PackagesDir: p.cfg.Packages,
		},
		Dependencies: p.cfg.Dependencies,
		Resolver:     p.cfg.NewResolver(),
		Concurrency:  p.cfg.Concurrency,
		Ignore:       p.cfg.Ignore,
		Scope:        p.cfg.Scope,
		Logger:       logger,
	}
	if db := openHistory(p, logger); db != nil {
		defer db.Close()
		cfg.History = db
	}

	report, err := orchestrator.New(cfg, orchestrator.WithFs(afero.NewOsFs())).Run(cmd.Context(), command, args)
	if err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), report)
	if code := report.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}
