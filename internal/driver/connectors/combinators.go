package connectors

import (
	"context"

	"github.com/louisbranch/drivechain/internal/driver/dom"
	"github.com/louisbranch/drivechain/internal/driver/subject"
	apperrors "github.com/louisbranch/drivechain/internal/platform/errors"
)

// splitCallbackArgs accepts (fn) or (options, fn).
func splitCallbackArgs(args []any) (rawOptions any, fn any) {
	switch {
	case len(args) == 0:
		return nil, nil
	case len(args) == 1 || subject.IsCallable(args[0]):
		return nil, args[0]
	default:
		return args[0], args[1]
	}
}

// Each runs fn(element, index, subj) for every element of an array-like
// subject, one at a time. A callback returning false stops the iteration.
// Each always yields subj.
func Each(ctx context.Context, ex Exec, subj any, args ...any) (any, error) {
	rawOptions, fn := splitCallbackArgs(args)
	opts, _ := ParseOptions(rawOptions)

	if !subject.IsCallable(fn) {
		return nil, apperrors.WithMetadata(apperrors.CodeEachInvalidArgument, nil)
	}
	n, ok := subject.Length(subj)
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeNonArraySubject, map[string]string{
			"Subject": subject.Stringify(subj),
		})
	}
	if n == 0 {
		return subj, nil
	}

	endEarly := false
	for index, el := range subject.ToSlice(subj) {
		if dom.IsElement(el) {
			el = dom.WrapValue(el)
		}
		callback := eachCallback{fn: fn, this: ex.This, el: el, index: index, subj: subj, stop: &endEarly}
		if _, err := Then(ctx, ex, el, opts, callback); err != nil {
			return nil, err
		}
		if endEarly {
			break
		}
	}

	ex.Scheduler.BreakSubjectChain()
	return subj, nil
}

// eachCallback adapts the user callback to the per-element Then call.
type eachCallback struct {
	fn    any
	this  any
	el    any
	index int
	subj  any
	stop  *bool
}

func (c eachCallback) Call(_ any, _ ...any) (any, error) {
	ret, err := subject.Call(c.fn, c.this, c.el, c.index, c.subj)
	if ret == false {
		*c.stop = true
	}
	return ret, err
}

func (c eachCallback) String() string { return subject.Describe(c.fn) }

// Spread marks an array-like subject as spread and runs fn with its
// elements as separate arguments.
func Spread(ctx context.Context, ex Exec, subj any, args ...any) (any, error) {
	rawOptions, fn := splitCallbackArgs(args)
	if !subject.IsArrayLike(subj) {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidSpreadType, nil)
	}
	if !subject.IsCallable(fn) {
		return nil, invalidCallback(ex)
	}
	opts, _ := ParseOptions(rawOptions)
	return Then(ctx, ex, subject.MarkSpread(subj), opts, fn)
}

func invalidCallback(ex Exec) error {
	return apperrors.WithMetadata(apperrors.CodeThenInvalidArgument, map[string]string{"Cmd": ex.commandName()})
}
