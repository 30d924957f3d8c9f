// Package cmdlog records the diagnostic log entries produced while commands
// run and hands finished entries to a Reporter.
package cmdlog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/louisbranch/drivechain/internal/driver/subject"
)

// Log states.
const (
	StatePending = "pending"
	StatePassed  = "passed"
	StateFailed  = "failed"
)

// Props are the console properties shown for a log entry.
type Props map[string]any

// Update replaces the element and console properties of a log.
type Update struct {
	Element      any
	ConsoleProps func() Props
}

// Options configure a new log.
type Options struct {
	Name    string
	Message string
	Timeout time.Duration
}

// Record is an immutable snapshot of a log.
type Record struct {
	RunID     string
	ID        string
	Name      string
	Message   string
	State     string
	Timeout   time.Duration
	Element   string
	Props     map[string]string
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

// Reporter receives finished log records.
type Reporter interface {
	Report(ctx context.Context, record Record) error
}

// Log is one diagnostic entry attached to a command.
type Log struct {
	mu      sync.Mutex
	runID   string
	id      string
	name    string
	message string
	timeout time.Duration
	state   string
	element any
	props   func() Props
	err     error
	started time.Time
	ended   time.Time
	now     func() time.Time
}

// Set replaces the element and console properties.
func (l *Log) Set(update Update) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.element = update.Element
	l.props = update.ConsoleProps
}

// Fail marks the log as failed with err. Only the first failure is kept.
func (l *Log) Fail(err error) {
	if l == nil || err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateFailed {
		return
	}
	l.state = StateFailed
	l.err = err
	l.ended = l.now()
}

// End marks a pending log as passed.
func (l *Log) End() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StatePending {
		return
	}
	l.state = StatePassed
	l.ended = l.now()
}

// ID returns the log's unique identifier.
func (l *Log) ID() string { return l.id }

// State returns the current state.
func (l *Log) State() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the failure recorded by Fail.
func (l *Log) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Snapshot renders the log into a Record. Console properties are
// evaluated lazily here.
func (l *Log) Snapshot() Record {
	l.mu.Lock()
	element, propsFn := l.element, l.props
	record := Record{
		RunID:     l.runID,
		ID:        l.id,
		Name:      l.name,
		Message:   l.message,
		State:     l.state,
		Timeout:   l.timeout,
		StartedAt: l.started,
		EndedAt:   l.ended,
	}
	if l.err != nil {
		record.Error = l.err.Error()
	}
	l.mu.Unlock()

	if element != nil {
		record.Element = display(element)
	}
	if propsFn != nil {
		props := propsFn()
		record.Props = make(map[string]string, len(props))
		for key, value := range props {
			record.Props[key] = display(value)
		}
	}
	return record
}

// display renders a prop value. Strings are shown verbatim.
func display(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return subject.Stringify(v)
}

// Logger creates logs for one run.
type Logger struct {
	mu       sync.Mutex
	runID    string
	reporter Reporter
	logs     []*Log
	now      func() time.Time
}

// NewLogger returns a logger with a fresh run ID. reporter may be nil.
func NewLogger(reporter Reporter) *Logger {
	return &Logger{
		runID:    uuid.NewString(),
		reporter: reporter,
		now:      time.Now,
	}
}

// RunID returns the run identifier shared by every record.
func (lg *Logger) RunID() string { return lg.runID }

// New creates a pending log.
func (lg *Logger) New(opts Options) *Log {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	log := &Log{
		runID:   lg.runID,
		id:      uuid.NewString(),
		name:    opts.Name,
		message: opts.Message,
		timeout: opts.Timeout,
		state:   StatePending,
		started: lg.now(),
		now:     lg.now,
	}
	lg.logs = append(lg.logs, log)
	return log
}

// Logs returns the logs created so far, in creation order.
func (lg *Logger) Logs() []*Log {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	return append([]*Log(nil), lg.logs...)
}

// Records snapshots every log.
func (lg *Logger) Records() []Record {
	logs := lg.Logs()
	records := make([]Record, 0, len(logs))
	for _, log := range logs {
		records = append(records, log.Snapshot())
	}
	return records
}

// Flush reports every record to the reporter.
func (lg *Logger) Flush(ctx context.Context) error {
	if lg.reporter == nil {
		return nil
	}
	var errs []error
	for _, record := range lg.Records() {
		if err := lg.reporter.Report(ctx, record); err != nil {
			errs = append(errs, fmt.Errorf("report log %s: %w", record.ID, err))
		}
	}
	return errors.Join(errs...)
}
