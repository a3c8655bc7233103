package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// RunStatus represents the status of a recorded run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunSucceeded   RunStatus = "succeeded"
	RunFailed      RunStatus = "failed"
	RunInterrupted RunStatus = "interrupted"
)

// Run is one invocation of a command across the project's packages.
type Run struct {
	ID        string          `json:"id" yaml:"id"`
	Command   string          `json:"command" yaml:"command"`
	Arguments []string        `json:"arguments" yaml:"arguments"`
	StartedAt time.Time       `json:"started_at" yaml:"started_at"`
	Duration  time.Duration   `json:"duration" yaml:"duration"`
	Status    RunStatus       `json:"status" yaml:"status"`
	PID       int             `json:"pid" yaml:"-"`
	Results   []PackageResult `json:"results,omitempty" yaml:"results,omitempty"`
}

// PackageResult is the recorded response of one package within a run.
type PackageResult struct {
	Package string   `json:"package" yaml:"package"`
	Outcome string   `json:"outcome" yaml:"outcome"`
	Info    []string `json:"info" yaml:"info"`
	Error   []string `json:"error" yaml:"error"`
}

// StartRun inserts a run in the running state.
func (db *DB) StartRun(r *Run) error {
	args, err := json.Marshal(nonNil(r.Arguments))
	if err != nil {
		return fmt.Errorf("marshal arguments: %w", err)
	}
	if r.Status == "" {
		r.Status = RunRunning
	}

	_, err = db.Exec(`
		INSERT INTO runs (id, command, arguments, started_at, duration_ms, status, pid)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Command, string(args), formatTime(r.StartedAt), r.Duration.Milliseconds(), string(r.Status), r.PID)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun stores the final status, duration and package results of a run
// previously created with StartRun.
func (db *DB) FinishRun(r *Run) error {
	return db.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE runs SET duration_ms = ?, status = ? WHERE id = ?
		`, r.Duration.Milliseconds(), string(r.Status), r.ID)
		if err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("finish run: run %s not found", r.ID)
		}

		if _, err := tx.Exec(`DELETE FROM package_results WHERE run_id = ?`, r.ID); err != nil {
			return fmt.Errorf("clear package results: %w", err)
		}

		for i, pr := range r.Results {
			info, err := json.Marshal(nonNil(pr.Info))
			if err != nil {
				return fmt.Errorf("marshal info logs: %w", err)
			}
			errLogs, err := json.Marshal(nonNil(pr.Error))
			if err != nil {
				return fmt.Errorf("marshal error logs: %w", err)
			}
			if _, err := tx.Exec(`
				INSERT INTO package_results (run_id, position, package, outcome, info, error)
				VALUES (?, ?, ?, ?, ?, ?)
			`, r.ID, i, pr.Package, pr.Outcome, string(info), string(errLogs)); err != nil {
				return fmt.Errorf("insert package result %s: %w", pr.Package, err)
			}
		}
		return nil
	})
}

// RecordRun stores a completed run in one step.
func (db *DB) RecordRun(r *Run) error {
	if err := db.StartRun(r); err != nil {
		return err
	}
	return db.FinishRun(r)
}

// GetRun retrieves a run and its package results by ID.
// Returns nil, nil when the run does not exist.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`
		SELECT id, command, arguments, started_at, duration_ms, status, pid
		FROM runs WHERE id = ?
	`, id)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	results, err := db.listPackageResults(r.ID)
	if err != nil {
		return nil, err
	}
	r.Results = results
	return r, nil
}

// ListRuns returns the most recent runs first, without package results.
// A limit of zero or less returns every run.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := `
		SELECT id, command, arguments, started_at, duration_ms, status, pid
		FROM runs ORDER BY started_at DESC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// listRunsByStatus returns every run with the given status.
func (db *DB) listRunsByStatus(status RunStatus) ([]Run, error) {
	rows, err := db.Query(`
		SELECT id, command, arguments, started_at, duration_ms, status, pid
		FROM runs WHERE status = ? ORDER BY started_at
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list runs by status: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

func (db *DB) listPackageResults(runID string) ([]PackageResult, error) {
	rows, err := db.Query(`
		SELECT package, outcome, info, error
		FROM package_results WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list package results: %w", err)
	}
	defer rows.Close()

	var results []PackageResult
	for rows.Next() {
		var pr PackageResult
		var info, errLogs string
		if err := rows.Scan(&pr.Package, &pr.Outcome, &info, &errLogs); err != nil {
			return nil, fmt.Errorf("scan package result: %w", err)
		}
		if err := json.Unmarshal([]byte(info), &pr.Info); err != nil {
			return nil, fmt.Errorf("unmarshal info logs: %w", err)
		}
		if err := json.Unmarshal([]byte(errLogs), &pr.Error); err != nil {
			return nil, fmt.Errorf("unmarshal error logs: %w", err)
		}
		results = append(results, pr)
	}
	return results, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var args, startedAt string
	var durationMS int64
	var status string
	if err := s.Scan(&r.ID, &r.Command, &args, &startedAt, &durationMS, &status, &r.PID); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(args), &r.Arguments); err != nil {
		return nil, fmt.Errorf("unmarshal arguments: %w", err)
	}
	t, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("started_at of run %s: %w", r.ID, err)
	}
	r.StartedAt = t
	r.Duration = time.Duration(durationMS) * time.Millisecond
	r.Status = RunStatus(status)
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
