// Package connectors implements the chain connector commands: then, its,
// invoke, each and spread. They run user callbacks under the scheduler's
// subject-chaining rules, bridge remote subjects and raise typed errors
// from the platform error catalog.
package connectors

import (
	"time"

	"github.com/louisbranch/drivechain/internal/driver/cmdlog"
	"github.com/louisbranch/drivechain/internal/driver/command"
)

// InjectHook is consulted before a command is enqueued. Returning false
// vetoes the command.
type InjectHook func(name string, args []any) bool

// Scheduler is the command queue the connectors run inside.
type Scheduler interface {
	// OnceEnqueued registers fn for the next "command enqueued" event. The
	// returned func removes the listener if it has not fired yet.
	OnceEnqueued(fn func(cmd *command.Command)) (remove func())
	// SetInjectHook installs hook and returns a func restoring the previous
	// hook.
	SetInjectHook(hook InjectHook) (restore func())
	// ClearTimeout disables the automatic timeout of the running command.
	ClearTimeout()
	// Current returns the command being executed.
	Current() *command.Command
	// BreakSubjectChain stops commands nested inside the running command from
	// handing their subject to the next outer chainer.
	BreakSubjectChain()
	// RemoteHandle returns the proxy handle for a cross-boundary subject.
	RemoteHandle(subject any) (any, bool)
	// DefaultCommandTimeout returns the configured command timeout.
	DefaultCommandTimeout() time.Duration
	// NewLog creates a diagnostic log entry for the running command.
	NewLog(opts cmdlog.Options) *cmdlog.Log
}

// Exec is the explicit execution context of one connector invocation.
type Exec struct {
	Scheduler Scheduler
	Command   *command.Command
	This      any
}

func (ex Exec) commandName() string {
	if ex.Command != nil {
		return ex.Command.Name()
	}
	if current := ex.Scheduler.Current(); current != nil {
		return current.Name()
	}
	return ""
}

func (ex Exec) commandLog() *cmdlog.Log {
	if ex.Command == nil {
		return nil
	}
	return ex.Command.Log()
}

func (ex Exec) isCurrent() bool {
	return ex.Command != nil && ex.Scheduler.Current() == ex.Command
}

func (ex Exec) remote(subject any) any {
	if handle, ok := ex.Scheduler.RemoteHandle(subject); ok {
		return handle
	}
	return subject
}
