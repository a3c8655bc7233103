package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/mgit/internal/state"
)

var (
	historyLimit int
	historyYAML  bool
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent runs",
	Long: `List the most recent runs recorded in .mgit/state.db.

With a run ID, shows the output every package produced in that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Maximum number of runs to list (0 for all)")
	historyCmd.Flags().BoolVar(&historyYAML, "yaml", false, "Print runs as YAML")
}

func runHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	root, err := projectRoot()
	if err != nil {
		return err
	}

	dbPath := state.ProjectDBPath(root)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if len(args) == 1 {
		run, err := db.GetRun(args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %q not found", args[0])
		}
		if historyYAML {
			return writeYAML(out, run)
		}
		displayRun(out, run)
		return nil
	}

	runs, err := db.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if historyYAML {
		return writeYAML(out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	fmt.Fprintln(out, renderRuns(runs))
	return nil
}

func displayRun(w io.Writer, run *state.Run) {
	fmt.Fprintf(w, "Run %s: %s\n", run.ID, commandLine(run.Command, run.Arguments))
	fmt.Fprintf(w, "  Started: %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Duration: %s\n", formatDuration(run.Duration))
	fmt.Fprintf(w, "  Status: %s\n\n", statusText(run.Status))
	for _, result := range run.Results {
		printPackage(w, result.Package, result.Info, result.Error)
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
