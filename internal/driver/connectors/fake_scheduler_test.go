package connectors

import (
	"time"

	"github.com/louisbranch/drivechain/internal/driver/cmdlog"
	"github.com/louisbranch/drivechain/internal/driver/command"
)

type onceListener struct {
	fn func(*command.Command)
}

// fakeScheduler records what the connectors ask of the queue.
type fakeScheduler struct {
	hook          InjectHook
	listeners     []*onceListener
	clearTimeouts int
	breaks        int
	current       *command.Command
	remote        func(any) (any, bool)
	timeout       time.Duration
	logger        *cmdlog.Logger
	enqueued      []*command.Command
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{timeout: time.Second, logger: cmdlog.NewLogger(nil)}
}

func (f *fakeScheduler) OnceEnqueued(fn func(*command.Command)) func() {
	l := &onceListener{fn: fn}
	f.listeners = append(f.listeners, l)
	return func() {
		for i, existing := range f.listeners {
			if existing == l {
				f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
				return
			}
		}
	}
}

func (f *fakeScheduler) SetInjectHook(hook InjectHook) func() {
	previous := f.hook
	f.hook = hook
	return func() { f.hook = previous }
}

func (f *fakeScheduler) ClearTimeout() { f.clearTimeouts++ }

func (f *fakeScheduler) Current() *command.Command { return f.current }

func (f *fakeScheduler) BreakSubjectChain() { f.breaks++ }

func (f *fakeScheduler) RemoteHandle(subject any) (any, bool) {
	if f.remote == nil {
		return nil, false
	}
	return f.remote(subject)
}

func (f *fakeScheduler) DefaultCommandTimeout() time.Duration { return f.timeout }

func (f *fakeScheduler) NewLog(opts cmdlog.Options) *cmdlog.Log { return f.logger.New(opts) }

// enqueue mimics the queue: the inject hook may veto, otherwise the command
// is recorded and one-shot listeners fire.
func (f *fakeScheduler) enqueue(name string, args ...any) bool {
	if f.hook != nil && !f.hook(name, args) {
		return false
	}
	cmd := command.New(name, command.Child, args...)
	f.enqueued = append(f.enqueued, cmd)
	listeners := f.listeners
	f.listeners = nil
	for _, l := range listeners {
		l.fn(cmd)
	}
	return true
}

// exec makes cmd the current command and returns its execution context.
func (f *fakeScheduler) exec(name string, kind command.Kind, args ...any) Exec {
	cmd := command.New(name, kind, args...)
	f.current = cmd
	return Exec{Scheduler: f, Command: cmd}
}
