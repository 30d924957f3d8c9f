package connectors

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/louisbranch/drivechain/internal/driver/command"
	"github.com/louisbranch/drivechain/internal/driver/subject"
	apperrors "github.com/louisbranch/drivechain/internal/platform/errors"
)

// observeEnqueue runs body with the thenable detector installed and a
// one-shot "command enqueued" observer armed. body receives a func that
// reports whether a command has been enqueued so far. Both are torn down
// when observeEnqueue returns, on every path.
func observeEnqueue(s Scheduler, body func(enqueued func() bool) (any, error)) (any, error) {
	var enqueued atomic.Bool
	restore := s.SetInjectHook(ReturnFalseIfThenable)
	remove := s.OnceEnqueued(func(*command.Command) { enqueued.Store(true) })
	defer func() {
		remove()
		restore()
	}()
	return body(enqueued.Load)
}

// Then runs fn with the subject as its argument and yields its result. A
// callback that yields undefined keeps subj; any other value replaces it and
// breaks subject inheritance from commands the callback enqueued. Promise
// results are awaited for at most opts.Timeout.
func Then(ctx context.Context, ex Exec, subj any, opts Options, fn any) (any, error) {
	s := ex.Scheduler
	opts = opts.withDefaults(s)
	name := ex.commandName()

	s.ClearTimeout()

	args := callbackArgs(ex, subj)

	result, err := observeEnqueue(s, func(enqueued func() bool) (any, error) {
		ret, err := subject.Call(fn, ex.This, args...)
		if err != nil {
			return nil, err
		}
		if subject.Truthy(ret) && !subject.IsThenable(ret) && enqueued() {
			return nil, apperrors.WithMetadata(apperrors.CodeMixedSyncAsync, map[string]string{
				"Value": subject.Stringify(ret),
			})
		}
		return await(ctx, ret, opts.Timeout, name, fn)
	})
	if err != nil {
		ex.commandLog().Fail(err)
		return nil, err
	}

	if subject.IsUndefined(result) {
		return subj, nil
	}
	s.BreakSubjectChain()
	return result, nil
}

// callbackArgs resolves the callback argument list. A spread subject is
// passed element by element; anything else is a single argument.
func callbackArgs(ex Exec, subj any) []any {
	value := ex.remote(subj)
	if subject.IsSpread(subj) {
		return subject.ToSlice(value)
	}
	return []any{value}
}

func await(ctx context.Context, ret any, timeout time.Duration, name string, fn any) (any, error) {
	if !subject.IsThenable(ret) {
		return ret, nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, timeout, apperrors.WithMetadata(apperrors.CodeTimedOut, map[string]string{
			"Cmd":     name,
			"Timeout": timeout.String(),
			"Func":    subject.Describe(fn),
		}))
		defer cancel()
	}
	return subject.Await(ctx, ret)
}
