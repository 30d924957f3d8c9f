// Package command defines queued command records and the definitions used
// to register command implementations with a scheduler.
package command

import (
	"context"
	"sync"
	"time"

	"github.com/louisbranch/drivechain/internal/driver/cmdlog"
)

// Kind describes how a command relates to the subject chain.
type Kind int

const (
	// Parent commands start a new chain and ignore the previous subject.
	Parent Kind = iota
	// Child commands require a previous subject.
	Child
	// Dual commands accept a previous subject when one exists.
	Dual
	// Query commands are bound once and their resolver retried until the
	// following assertions pass.
	Query
	// Assertion commands validate the previous subject without changing it.
	Assertion
)

func (k Kind) String() string {
	switch k {
	case Parent:
		return "parent"
	case Child:
		return "child"
	case Dual:
		return "dual"
	case Query:
		return "query"
	case Assertion:
		return "assertion"
	default:
		return "unknown"
	}
}

// Attribute keys stored on a command record.
const (
	AttrTimeout            = "timeout"
	AttrEnsureExistenceFor = "ensureExistenceFor"
	AttrLog                = "_log"
)

// Command is one record in the queue.
type Command struct {
	mu    sync.Mutex
	name  string
	kind  Kind
	args  []any
	attrs map[string]any
	next  *Command
}

// New returns a command record with a copy of args.
func New(name string, kind Kind, args ...any) *Command {
	return &Command{
		name:  name,
		kind:  kind,
		args:  append([]any(nil), args...),
		attrs: map[string]any{},
	}
}

// Name returns the command name.
func (c *Command) Name() string { return c.name }

// Kind returns the command kind.
func (c *Command) Kind() Kind { return c.kind }

// Args returns the command's positional arguments.
func (c *Command) Args() []any { return c.args }

// Get returns an attribute value, or nil when unset.
func (c *Command) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attrs[key]
}

// Set stores an attribute. A nil value clears it.
func (c *Command) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value == nil {
		delete(c.attrs, key)
		return
	}
	c.attrs[key] = value
}

// Next returns the command queued after c.
func (c *Command) Next() *Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// SetNext links the command queued after c.
func (c *Command) SetNext(next *Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = next
}

// Timeout returns the timeout attribute and whether one was set.
func (c *Command) Timeout() (time.Duration, bool) {
	timeout, ok := c.Get(AttrTimeout).(time.Duration)
	return timeout, ok
}

// Log returns the diagnostic log attached to the command, if any.
func (c *Command) Log() *cmdlog.Log {
	log, _ := c.Get(AttrLog).(*cmdlog.Log)
	return log
}

// Invocation carries what a command implementation receives when it runs.
type Invocation struct {
	Command *Command
	Subject any
	Args    []any
	This    any
}

// Handler runs a parent, child, dual or assertion command.
type Handler func(ctx context.Context, inv Invocation) (any, error)

// Resolver is a query's retryable accessor over the live subject.
type Resolver func(subject any) (any, error)

// QueryFactory binds a query command, validating its arguments once.
type QueryFactory func(cmd *Command, args []any) (Resolver, error)

// Definition registers a command implementation under a name.
type Definition struct {
	Name  string
	Kind  Kind
	Run   Handler
	Query QueryFactory
}
