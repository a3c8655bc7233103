package orchestrator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugLogger writes timestamped debug lines for a run.
// A nil logger or one without a writer discards everything.
type DebugLogger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// DebugLogPath returns the debug log location for a project root.
func DebugLogPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".mgit", "logs", "debug.log")
}

// NewDebugLogger appends to the file at logPath, creating it and its parent
// directories as needed. An empty path yields a no-op logger.
func NewDebugLogger(logPath string) (*DebugLogger, error) {
	if logPath == "" {
		return NopLogger(), nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := &DebugLogger{w: f, closer: f}
	logger.Log("=== mgit debug log started (pid %d) ===", os.Getpid())
	return logger, nil
}

// NewDebugLoggerForProject opens the debug log under projectRoot.
// Returns a no-op logger if the log cannot be opened.
func NewDebugLoggerForProject(projectRoot string) *DebugLogger {
	logger, err := NewDebugLogger(DebugLogPath(projectRoot))
	if err != nil {
		return NopLogger()
	}
	return logger
}

// NewWriterLogger logs to w. Close does not close w.
func NewWriterLogger(w io.Writer) *DebugLogger {
	return &DebugLogger{w: w}
}

// NopLogger returns a logger that discards everything.
func NopLogger() *DebugLogger {
	return &DebugLogger{}
}

// Log writes a timestamped message.
func (l *DebugLogger) Log(format string, args ...any) {
	if l == nil || l.w == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.w, "[%s] %s\n", time.Now().Format("2006-01-02 15:04:05.000"), fmt.Sprintf(format, args...))
	if f, ok := l.w.(*os.File); ok {
		_ = f.Sync()
	}
}

// Close releases the underlying file, if any. Safe on a nil logger.
func (l *DebugLogger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.closer.Close()
	l.w, l.closer = nil, nil
	return err
}
