package queue

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/drivechain/internal/driver/cmdlog"
	"github.com/louisbranch/drivechain/internal/driver/command"
	"github.com/louisbranch/drivechain/internal/driver/dom"
	apperrors "github.com/louisbranch/drivechain/internal/platform/errors"
)

// Internal attributes.
const (
	attrRestore  = "_restore"
	attrConsumed = "_consumed"
)

// restore carries a subject to reinstate once nested commands have run.
type restore struct {
	value any
}

func isRestore(cmd *command.Command) bool {
	_, ok := cmd.Get(attrRestore).(restore)
	return ok
}

// Run executes the queued commands that have not run yet, in order, and
// returns the subject yielded by the last one. Run stops at the first
// failing command.
func (q *Queue) Run(ctx context.Context) (any, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, context.Cause(ctx)
		}
		cmd := q.nextCommand()
		if cmd == nil {
			return q.subject, nil
		}

		if r, ok := cmd.Get(attrRestore).(restore); ok {
			q.subject, q.hasSubject = r.value, true
			continue
		}
		if cmd.Get(attrConsumed) != nil {
			continue
		}

		result, err := q.runCommand(ctx, cmd)
		if err != nil {
			return nil, err
		}
		q.subject, q.hasSubject = result, true
	}
}

// nextCommand advances the cursor. Run executes on one goroutine, so the
// cursor and subject fields are only touched there.
func (q *Queue) nextCommand() *command.Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	var next *command.Command
	if q.cursor == nil {
		next = q.head
	} else {
		next = q.cursor.Next()
	}
	if next != nil {
		q.cursor = next
	}
	return next
}

func (q *Queue) runCommand(ctx context.Context, cmd *command.Command) (result any, err error) {
	def, ok := q.definition(cmd.Name())
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeUnknownCommand, map[string]string{"Name": cmd.Name()})
	}

	var subj any
	switch def.Kind {
	case command.Parent:
	case command.Dual:
		if q.hasSubject {
			subj = q.subject
		}
	default:
		if !q.hasSubject {
			return nil, apperrors.WithMetadata(apperrors.CodeChildWithoutSubject, map[string]string{"Cmd": cmd.Name()})
		}
		subj = q.subject
	}

	ctx, span := q.tracer.Start(ctx, "command "+cmd.Name(), trace.WithAttributes(
		attribute.String("drivechain.command.name", cmd.Name()),
		attribute.String("drivechain.command.kind", def.Kind.String()),
	))
	defer span.End()

	f := &frame{cmd: cmd, insertAfter: cmd}
	defer func() {
		q.mu.Lock()
		q.frame = nil
		if err == nil && f.breakChain && f.nested > 0 {
			marker := command.New("", command.Parent)
			marker.Set(attrRestore, restore{value: result})
			marker.SetNext(f.insertAfter.Next())
			f.insertAfter.SetNext(marker)
			if q.tail == f.insertAfter {
				q.tail = marker
			}
		}
		q.mu.Unlock()

		if err != nil {
			q.fail(cmd, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		if log := cmd.Log(); log != nil {
			log.End()
		}
	}()

	switch def.Kind {
	case command.Query:
		resolver, err := def.Query(cmd, cmd.Args())
		if err != nil {
			return nil, err
		}
		q.setFrame(f)
		span.SetAttributes(attribute.Int64("drivechain.command.timeout_ms", q.timeoutFor(cmd).Milliseconds()))
		return q.retry(ctx, cmd, subj, resolver, q.followingAssertions(cmd))
	case command.Assertion:
		q.setFrame(f)
		identity := func(subj any) (any, error) { return subj, nil }
		assertions := append([]*command.Command{cmd}, q.followingAssertions(cmd)...)
		return q.retry(ctx, cmd, subj, identity, assertions)
	default:
		timeout := q.timeoutFor(cmd)
		span.SetAttributes(attribute.Int64("drivechain.command.timeout_ms", timeout.Milliseconds()))
		return q.runHandler(ctx, f, def, subj, timeout)
	}
}

// runHandler runs a handler under the automatic command timeout, which the
// handler may disable through ClearTimeout.
func (q *Queue) runHandler(ctx context.Context, f *frame, def command.Definition, subj any, timeout time.Duration) (any, error) {
	cmd := f.cmd
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if timeout > 0 {
		f.timer = time.AfterFunc(timeout, func() {
			if !f.timerStopped.Load() {
				cancel(timedOut(cmd, timeout))
			}
		})
		defer f.timer.Stop()
	}
	q.setFrame(f)

	result, err := def.Run(runCtx, command.Invocation{
		Command: cmd,
		Subject: subj,
		Args:    cmd.Args(),
		This:    q.cfg.This,
	})
	if err != nil {
		return nil, err
	}
	if !f.timerStopped.Load() && runCtx.Err() != nil {
		return nil, context.Cause(runCtx)
	}
	return result, nil
}

// retry calls resolver until its value passes ensureExistence and every
// assertion, or the command timeout elapses. The last failure is returned.
func (q *Queue) retry(ctx context.Context, cmd *command.Command, subj any, resolver command.Resolver, assertions []*command.Command) (any, error) {
	timeout := q.timeoutFor(cmd)
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		value, failing, err := q.attempt(ctx, cmd, subj, resolver, assertions)
		if err == nil {
			for _, a := range assertions {
				if a == cmd {
					continue
				}
				a.Set(attrConsumed, true)
				if log := a.Log(); log != nil {
					log.End()
				}
			}
			return value, nil
		}
		if apperrors.HasCode(err, apperrors.CodeUnknownChainer) ||
			(!deadline.IsZero() && !time.Now().Add(q.cfg.RetryInterval).Before(deadline)) {
			if failing != nil && failing != cmd {
				q.fail(failing, err)
			}
			return nil, err
		}

		timer := time.NewTimer(q.cfg.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, context.Cause(ctx)
		case <-timer.C:
		}
	}
}

func (q *Queue) attempt(ctx context.Context, cmd *command.Command, subj any, resolver command.Resolver, assertions []*command.Command) (any, *command.Command, error) {
	value, err := resolver(subj)
	if err != nil {
		return nil, cmd, err
	}
	if len(assertions) == 0 && cmd.Get(command.AttrEnsureExistenceFor) == "subject" && dom.IsEmptySelection(value) {
		return nil, cmd, apperrors.WithMetadata(apperrors.CodeElementNotFound, map[string]string{"Cmd": cmd.Name()})
	}
	for _, a := range assertions {
		def, ok := q.definition(a.Name())
		if !ok || def.Run == nil {
			return nil, a, apperrors.WithMetadata(apperrors.CodeUnknownCommand, map[string]string{"Name": a.Name()})
		}
		_, err := def.Run(ctx, command.Invocation{Command: a, Subject: value, Args: a.Args(), This: q.cfg.This})
		if err != nil {
			return nil, a, err
		}
	}
	return value, nil, nil
}

// followingAssertions returns the assertion commands queued right after cmd.
func (q *Queue) followingAssertions(cmd *command.Command) []*command.Command {
	var out []*command.Command
	for next := cmd.Next(); next != nil && next.Kind() == command.Assertion; next = next.Next() {
		out = append(out, next)
	}
	return out
}

func (q *Queue) timeoutFor(cmd *command.Command) time.Duration {
	if timeout, ok := cmd.Timeout(); ok {
		return timeout
	}
	return q.cfg.DefaultCommandTimeout
}

func (q *Queue) definition(name string) (command.Definition, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	def, ok := q.defs[name]
	return def, ok
}

func (q *Queue) setFrame(f *frame) {
	q.mu.Lock()
	q.frame = f
	q.mu.Unlock()
}

// fail records err on the command's log, creating one when the command
// did not log itself.
func (q *Queue) fail(cmd *command.Command, err error) {
	log := cmd.Log()
	if log == nil {
		log = q.logger.New(cmdlog.Options{Name: cmd.Name(), Timeout: q.timeoutFor(cmd)})
		cmd.Set(command.AttrLog, log)
	}
	log.Fail(err)
}

func timedOut(cmd *command.Command, timeout time.Duration) error {
	return apperrors.WithMetadata(apperrors.CodeCommandTimedOut, map[string]string{
		"Cmd":     cmd.Name(),
		"Timeout": timeout.String(),
	})
}
