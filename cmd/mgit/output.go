package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/kballard/go-shellquote"

	"github.com/ShayCichocki/mgit/internal/commands"
	"github.com/ShayCichocki/mgit/internal/orchestrator"
	"github.com/ShayCichocki/mgit/internal/state"
)

var (
	headerColor  = color.New(color.Bold)
	errorColor   = color.New(color.FgRed)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
)

// printStatus writes a status line with a colored symbol.
func printStatus(w io.Writer, symbol, message string, c *color.Color) {
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}

// printPackage writes one package's header and log lines.
func printPackage(w io.Writer, name string, info, errs []string) {
	headerColor.Fprintf(w, "#### %s\n", name)
	for _, line := range info {
		fmt.Fprintln(w, line)
	}
	for _, line := range errs {
		errorColor.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}

// printReport writes every response in order followed by the summary.
func printReport(w io.Writer, r *orchestrator.Report) {
	for _, resp := range r.Responses {
		printPackage(w, resp.PackageName, resp.Logs.Info, resp.Logs.Error)
	}
	fmt.Fprintln(w, renderSummary(r))
	fmt.Fprintln(w, resultLine(len(r.Responses), r.Failed()))
}

// resultLine is the one-line verdict printed under the summary table.
func resultLine(total int, failed []string) string {
	if total == 0 {
		return warnColor.Sprint("⚠ No packages matched.")
	}
	if len(failed) == 0 {
		return successColor.Sprintf("✓ %d of %d packages succeeded.", total, total)
	}
	return errorColor.Sprintf("✗ %d of %d packages failed: %s", len(failed), total, strings.Join(failed, ", "))
}

// renderSummary renders the counts of a report as a table.
func renderSummary(r *orchestrator.Report) string {
	counts := r.Counts()
	return newTable().
		Headers("RUN", "COMMAND", "PACKAGES", "SUCCEEDED", "UNAVAILABLE", "FAILED", "DURATION").
		Row(
			r.RunID,
			commandLine(r.Command, r.Arguments),
			strconv.Itoa(len(r.Responses)),
			strconv.Itoa(counts[commands.OutcomeSuccess]),
			strconv.Itoa(counts[commands.OutcomeUnavailable]),
			strconv.Itoa(counts[commands.OutcomeFailure]),
			formatDuration(r.Duration),
		).
		Render()
}

// renderRuns renders a history listing as a table.
func renderRuns(runs []state.Run) string {
	t := newTable().Headers("RUN", "STARTED", "COMMAND", "STATUS", "DURATION")
	for _, run := range runs {
		t.Row(
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			commandLine(run.Command, run.Arguments),
			statusText(run.Status),
			formatDuration(run.Duration),
		)
	}
	return t.Render()
}

func newTable() *table.Table {
	cell := lipgloss.NewStyle().Padding(0, 1)
	header := cell
	if !color.NoColor {
		header = header.Bold(true)
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}

func statusText(status state.RunStatus) string {
	switch status {
	case state.RunSucceeded:
		return successColor.Sprint(status)
	case state.RunFailed:
		return errorColor.Sprint(status)
	case state.RunRunning, state.RunInterrupted:
		return warnColor.Sprint(status)
	default:
		return string(status)
	}
}

// commandLine renders a subcommand and its arguments the way a user would
// type them.
func commandLine(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + shellquote.Join(args...)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
