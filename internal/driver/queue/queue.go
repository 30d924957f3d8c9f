// Package queue is a single-run command scheduler. Commands are enqueued,
// then executed one at a time in order, each receiving the subject yielded
// by the command before it.
package queue

import (
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/drivechain/internal/driver/cmdlog"
	"github.com/louisbranch/drivechain/internal/driver/command"
	"github.com/louisbranch/drivechain/internal/driver/connectors"
	"github.com/louisbranch/drivechain/internal/platform/timeouts"
)

const tracerName = "github.com/louisbranch/drivechain/internal/driver/queue"

// RemoteResolver returns the proxy handle for a subject living across an
// execution boundary.
type RemoteResolver func(subject any) (handle any, ok bool)

// Config configures a Queue.
type Config struct {
	// DefaultCommandTimeout applies to commands without their own timeout.
	DefaultCommandTimeout time.Duration
	// RetryInterval is the pause between query resolver attempts.
	RetryInterval time.Duration
	// Remote resolves cross-boundary subjects. Optional.
	Remote RemoteResolver
	// Logger receives the command logs. A fresh logger is used when nil.
	Logger *cmdlog.Logger
	// Tracer records one span per command. The global tracer is used when nil.
	Tracer trace.Tracer
	// This is bound as the receiver of user callbacks.
	This any
}

// Queue schedules and runs commands.
type Queue struct {
	cfg    Config
	logger *cmdlog.Logger
	tracer trace.Tracer
	defs   map[string]command.Definition

	mu        sync.Mutex
	head      *command.Command
	tail      *command.Command
	hook      connectors.InjectHook
	listeners []*listener
	frame     *frame

	cursor     *command.Command
	subject    any
	hasSubject bool
}

type listener struct {
	fn func(*command.Command)
}

// frame is the bookkeeping of the command currently executing.
type frame struct {
	cmd          *command.Command
	insertAfter  *command.Command
	nested       int
	breakChain   bool
	timerStopped atomic.Bool
	timer        *time.Timer
}

// New returns an empty queue with the connector commands and the built-in
// commands registered.
func New(cfg Config) *Queue {
	if cfg.DefaultCommandTimeout == 0 {
		cfg.DefaultCommandTimeout = timeouts.DefaultCommand
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = timeouts.RetryInterval
	}
	q := &Queue{
		cfg:    cfg,
		logger: cfg.Logger,
		tracer: cfg.Tracer,
		defs:   map[string]command.Definition{},
	}
	if q.logger == nil {
		q.logger = cmdlog.NewLogger(nil)
	}
	if q.tracer == nil {
		q.tracer = otel.Tracer(tracerName)
	}
	q.Register(connectors.Commands(q)...)
	q.Register(builtins(q)...)
	return q
}

// Register adds command definitions, replacing any with the same name.
func (q *Queue) Register(defs ...command.Definition) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, def := range defs {
		q.defs[def.Name] = def
	}
}

// Logger returns the logger the queue writes command logs to.
func (q *Queue) Logger() *cmdlog.Logger { return q.logger }

// Enqueue schedules a command. While another command runs, the new command
// is inserted after it (and after commands it enqueued before), so nested
// commands run before the rest of the queue. Enqueue returns nil when the
// inject hook vetoed the command.
func (q *Queue) Enqueue(name string, args ...any) *command.Command {
	q.mu.Lock()
	hook := q.hook
	q.mu.Unlock()
	if hook != nil && !hook(name, args) {
		return nil
	}

	q.mu.Lock()
	kind := command.Child
	if def, ok := q.defs[name]; ok {
		kind = def.Kind
	}
	cmd := command.New(name, kind, args...)
	q.insert(cmd)
	listeners := q.listeners
	q.listeners = nil
	q.mu.Unlock()

	for _, l := range listeners {
		l.fn(cmd)
	}
	return cmd
}

// insert links cmd into the queue. Callers hold q.mu.
func (q *Queue) insert(cmd *command.Command) {
	if f := q.frame; f != nil {
		after := f.insertAfter
		cmd.SetNext(after.Next())
		after.SetNext(cmd)
		f.insertAfter = cmd
		f.nested++
		if q.tail == after {
			q.tail = cmd
		}
		return
	}
	if q.tail == nil {
		q.head, q.tail = cmd, cmd
		return
	}
	q.tail.SetNext(cmd)
	q.tail = cmd
}

// Commands returns the queued commands in execution order.
func (q *Queue) Commands() []*command.Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*command.Command
	for cmd := q.head; cmd != nil; cmd = cmd.Next() {
		if isRestore(cmd) {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

// OnceEnqueued registers fn for the next enqueued command.
func (q *Queue) OnceEnqueued(fn func(*command.Command)) func() {
	l := &listener{fn: fn}
	q.mu.Lock()
	q.listeners = append(q.listeners, l)
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		for i, existing := range q.listeners {
			if existing == l {
				q.listeners = append(q.listeners[:i], q.listeners[i+1:]...)
				return
			}
		}
	}
}

// SetInjectHook installs hook and returns a func restoring the previous one.
func (q *Queue) SetInjectHook(hook connectors.InjectHook) func() {
	q.mu.Lock()
	previous := q.hook
	q.hook = hook
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		q.hook = previous
		q.mu.Unlock()
	}
}

// ClearTimeout disables the automatic timeout of the running command.
func (q *Queue) ClearTimeout() {
	q.mu.Lock()
	f := q.frame
	q.mu.Unlock()
	if f == nil {
		return
	}
	f.timerStopped.Store(true)
	if f.timer != nil {
		f.timer.Stop()
	}
}

// Current returns the command being executed, or nil between runs.
func (q *Queue) Current() *command.Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.frame == nil {
		return nil
	}
	return q.frame.cmd
}

// BreakSubjectChain restores the running command's own result once the
// commands it enqueued have run.
func (q *Queue) BreakSubjectChain() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.frame != nil {
		q.frame.breakChain = true
	}
}

// RemoteHandle resolves subject through the configured RemoteResolver.
func (q *Queue) RemoteHandle(subject any) (any, bool) {
	if q.cfg.Remote == nil {
		return nil, false
	}
	return q.cfg.Remote(subject)
}

// DefaultCommandTimeout returns the configured command timeout.
func (q *Queue) DefaultCommandTimeout() time.Duration {
	return q.cfg.DefaultCommandTimeout
}

// NewLog creates a pending log entry.
func (q *Queue) NewLog(opts cmdlog.Options) *cmdlog.Log {
	return q.logger.New(opts)
}

var _ connectors.Scheduler = (*Queue)(nil)
