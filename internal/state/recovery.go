package state

import (
	"fmt"
	"os"
	"syscall"
)

// MarkInterruptedRuns flips runs left in the running state by a process that
// no longer exists to interrupted. Returns the number of runs updated.
func (db *DB) MarkInterruptedRuns() (int, error) {
	runs, err := db.listRunsByStatus(RunRunning)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, r := range runs {
		if isProcessAlive(r.PID) {
			continue
		}
		if _, err := db.Exec(`UPDATE runs SET status = ? WHERE id = ?`, string(RunInterrupted), r.ID); err != nil {
			return marked, fmt.Errorf("mark run %s interrupted: %w", r.ID, err)
		}
		marked++
	}
	return marked, nil
}

// isProcessAlive checks if a process with the given PID is still running.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Send signal 0 to check if process exists
	err = process.Signal(syscall.Signal(0))
	return err == nil
}
