package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/drivechain/internal/driver/cmdlog"
	"github.com/louisbranch/drivechain/internal/driver/command"
	"github.com/louisbranch/drivechain/internal/driver/connectors"
	"github.com/louisbranch/drivechain/internal/driver/dom"
	"github.com/louisbranch/drivechain/internal/driver/subject"
	apperrors "github.com/louisbranch/drivechain/internal/platform/errors"
)

func builtins(q *Queue) []command.Definition {
	return []command.Definition{
		{Name: "wrap", Kind: command.Parent, Run: q.wrap},
		{Name: "should", Kind: command.Assertion, Run: q.should},
		{Name: "log", Kind: command.Parent, Run: q.log},
	}
}

// wrap yields its first argument. Thenables are awaited for the command
// timeout, or the timeout option when one is given.
func (q *Queue) wrap(ctx context.Context, inv command.Invocation) (any, error) {
	var value, rawOptions any
	if len(inv.Args) > 0 {
		value = inv.Args[0]
	}
	if len(inv.Args) > 1 {
		rawOptions = inv.Args[1]
	}
	opts, ok := connectors.ParseOptions(rawOptions)
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidOptionsArg, map[string]string{"Cmd": "wrap"})
	}

	var log *cmdlog.Log
	if opts.LogEnabled() {
		log = q.NewLog(cmdlog.Options{Name: "wrap", Message: subject.Stringify(value), Timeout: opts.Timeout})
		inv.Command.Set(command.AttrLog, log)
	}

	if subject.IsThenable(value) {
		q.ClearTimeout()
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = q.DefaultCommandTimeout()
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeoutCause(ctx, timeout, timedOut(inv.Command, timeout))
			defer cancel()
		}
		resolved, err := subject.Await(ctx, value)
		if err != nil {
			return nil, err
		}
		value = resolved
	}

	if log != nil {
		yielded := value
		log.Set(cmdlog.Update{
			Element: elementOf(yielded),
			ConsoleProps: func() cmdlog.Props {
				return cmdlog.Props{"Yielded": dom.Formatted(yielded)}
			},
		})
	}
	return value, nil
}

// log records a message. It yields null.
func (q *Queue) log(_ context.Context, inv command.Invocation) (any, error) {
	parts := make([]string, 0, len(inv.Args))
	for _, arg := range inv.Args {
		if s, ok := arg.(string); ok {
			parts = append(parts, s)
			continue
		}
		parts = append(parts, subject.Stringify(arg))
	}
	message := strings.Join(parts, ", ")
	log := q.NewLog(cmdlog.Options{Name: "log", Message: message})
	inv.Command.Set(command.AttrLog, log)
	log.Set(cmdlog.Update{
		ConsoleProps: func() cmdlog.Props {
			return cmdlog.Props{"Message": message, "Args": inv.Args}
		},
	})
	return subject.Null, nil
}

// should asserts on the subject. It yields the subject unchanged.
func (q *Queue) should(_ context.Context, inv command.Invocation) (any, error) {
	var chainer string
	var expected []any
	if len(inv.Args) > 0 {
		chainer, _ = inv.Args[0].(string)
		expected = inv.Args[1:]
	}

	log := inv.Command.Log()
	if log == nil {
		message := chainer
		if len(expected) > 0 {
			message = fmt.Sprintf("%s %s", chainer, subject.Stringify(expected[0]))
		}
		log = q.NewLog(cmdlog.Options{Name: "assert", Message: message})
		inv.Command.Set(command.AttrLog, log)
	}

	actual := inv.Subject
	log.Set(cmdlog.Update{
		Element: elementOf(actual),
		ConsoleProps: func() cmdlog.Props {
			props := cmdlog.Props{"Actual": actual, "Chainer": chainer}
			if len(expected) > 0 {
				props["Expected"] = expected[0]
			}
			return props
		},
	})

	if err := Assert(chainer, actual, expected...); err != nil {
		return nil, err
	}
	return actual, nil
}

func elementOf(v any) any {
	if dom.IsElement(v) {
		return v
	}
	return nil
}
