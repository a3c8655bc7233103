package state

import (
	"io"
	"time"
)

// RunStore handles run-related persistence operations.
type RunStore interface {
	StartRun(r *Run) error
	FinishRun(r *Run) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]Run, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// HistoryStore defines the interface for execution history persistence.
// The orchestrator depends on this rather than the concrete SQLite DB.
type HistoryStore interface {
	io.Closer
	Migrator
	RunStore
	PurgeOldRuns(olderThan time.Duration) (int64, error)
	MarkInterruptedRuns() (int, error)
}

// Compile-time verification that DB implements all interfaces.
var (
	_ HistoryStore = (*DB)(nil)
	_ Migrator     = (*DB)(nil)
	_ RunStore     = (*DB)(nil)
)
