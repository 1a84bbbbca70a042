// Package buildlog collects the timestamped progress and diagnostic
// entries of a single build. Every pipeline stage writes to the same Log;
// the entries are returned with the build result and mirrored to a zap
// logger as they are recorded.
package buildlog

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level is the severity of an entry.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Entry is one line of the build log.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
	Err     error
}

// String renders the entry the way the CLI prints it.
func (e Entry) String() string {
	ts := e.Time.Format("15:04:05.000")
	if e.Level == LevelInfo {
		return fmt.Sprintf("[%s] %s", ts, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", ts, e.Level, e.Message)
}

// Log is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	errs    []error
	logger  *zap.Logger
	now     func() time.Time
}

// New returns a Log mirroring to logger. A nil logger discards the mirror.
func New(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger, now: time.Now}
}

// WithClock replaces the time source. Used by tests for stable output.
func (l *Log) WithClock(now func() time.Time) *Log {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
	return l
}

// Infof records a progress entry.
func (l *Log) Infof(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.add(Entry{Level: LevelInfo, Message: msg})
	l.logger.Info(msg)
}

// Warn records a non-fatal problem. The error is kept in Errors().
func (l *Log) Warn(err error) {
	l.add(Entry{Level: LevelWarn, Message: err.Error(), Err: err})
	l.logger.Warn(err.Error(), zap.Error(err))
}

// Error records a failure. The error is kept in Errors().
func (l *Log) Error(err error) {
	l.add(Entry{Level: LevelError, Message: err.Error(), Err: err})
	l.logger.Error(err.Error(), zap.Error(err))
}

func (l *Log) add(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.Time = l.now()
	l.entries = append(l.entries, e)
	if e.Err != nil {
		l.errs = append(l.errs, e.Err)
	}
}

// Entries returns a copy of the entries in the order they were recorded.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Errors returns every error recorded with Warn or Error.
func (l *Log) Errors() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]error, len(l.errs))
	copy(out, l.errs)
	return out
}

// Lines renders every entry with Entry.String.
func (l *Log) Lines() []string {
	entries := l.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return lines
}
