package orchestrator

import (
	"os"
	"time"

	"github.com/ShayCichocki/mgit/internal/commands"
	"github.com/ShayCichocki/mgit/internal/state"
)

// Report is the result of running a command across the selected packages.
type Report struct {
	RunID     string              `json:"run_id" yaml:"run_id"`
	Command   string              `json:"command" yaml:"command"`
	Arguments []string            `json:"arguments" yaml:"arguments"`
	Responses []commands.Response `json:"responses" yaml:"responses"`
	StartedAt time.Time           `json:"started_at" yaml:"started_at"`
	Duration  time.Duration       `json:"duration" yaml:"duration"`
}

// Failed returns the names of packages whose response carries an error,
// in report order.
func (r *Report) Failed() []string {
	var names []string
	for _, resp := range r.Responses {
		if resp.Failed() {
			names = append(names, resp.PackageName)
		}
	}
	return names
}

// ExitCode is 1 when any package failed, 0 otherwise.
func (r *Report) ExitCode() int {
	if len(r.Failed()) > 0 {
		return 1
	}
	return 0
}

// Counts tallies responses by outcome kind.
func (r *Report) Counts() map[commands.OutcomeKind]int {
	counts := make(map[commands.OutcomeKind]int)
	for _, resp := range r.Responses {
		if resp.Outcome != nil {
			counts[resp.Outcome.Kind()]++
		}
	}
	return counts
}

// record converts the report into its history representation.
func (r *Report) record(status state.RunStatus) *state.Run {
	results := make([]state.PackageResult, 0, len(r.Responses))
	for _, resp := range r.Responses {
		if resp.PackageName == "" {
			continue
		}
		results = append(results, state.PackageResult{
			Package: resp.PackageName,
			Outcome: kindOf(resp),
			Info:    resp.Logs.Info,
			Error:   resp.Logs.Error,
		})
	}
	return &state.Run{
		ID:        r.RunID,
		Command:   r.Command,
		Arguments: r.Arguments,
		StartedAt: r.StartedAt,
		Duration:  r.Duration,
		Status:    status,
		PID:       os.Getpid(),
		Results:   results,
	}
}
