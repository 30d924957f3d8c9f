package subject

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Thenable is implemented by promise-shaped values. Then must eventually
// call exactly one of the callbacks with the settled value or error; it may
// do so synchronously.
type Thenable interface {
	Then(onFulfilled, onRejected Callable)
}

// IsThenable reports whether v has promise shape.
func IsThenable(v any) bool {
	if IsNil(v) {
		return false
	}
	_, ok := v.(Thenable)
	return ok
}

// Promise is a settle-once Thenable safe for use across goroutines.
type Promise struct {
	mu       sync.Mutex
	settled  bool
	value    any
	err      error
	handlers []promiseHandler
}

type promiseHandler struct {
	onFulfilled Callable
	onRejected  Callable
}

// NewPromise runs executor synchronously with the promise's resolve and
// reject functions. Only the first settlement counts.
func NewPromise(executor func(resolve func(any), reject func(error))) *Promise {
	p := &Promise{}
	if executor != nil {
		executor(p.resolve, p.reject)
	}
	return p
}

// Resolved returns a promise fulfilled with v.
func Resolved(v any) *Promise {
	return NewPromise(func(resolve func(any), _ func(error)) { resolve(v) })
}

// Rejected returns a promise rejected with err.
func Rejected(err error) *Promise {
	return NewPromise(func(_ func(any), reject func(error)) { reject(err) })
}

// Async runs fn on a new goroutine and settles with its result.
func Async(fn func() (any, error)) *Promise {
	p := &Promise{}
	go func() {
		value, err := fn()
		if err != nil {
			p.reject(err)
			return
		}
		p.resolve(value)
	}()
	return p
}

// Then registers the settlement callbacks, invoking one immediately when
// the promise has already settled.
func (p *Promise) Then(onFulfilled, onRejected Callable) {
	handler := promiseHandler{onFulfilled: onFulfilled, onRejected: onRejected}
	p.mu.Lock()
	if !p.settled {
		p.handlers = append(p.handlers, handler)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	p.dispatch(handler)
}

func (p *Promise) resolve(v any) { p.settle(v, nil) }

func (p *Promise) reject(err error) {
	if err == nil {
		err = errors.New("promise rejected")
	}
	p.settle(nil, err)
}

func (p *Promise) settle(v any, err error) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.settled = true
	p.value, p.err = v, err
	handlers := p.handlers
	p.handlers = nil
	p.mu.Unlock()

	for _, handler := range handlers {
		p.dispatch(handler)
	}
}

func (p *Promise) dispatch(handler promiseHandler) {
	if p.err != nil {
		if handler.onRejected != nil {
			_, _ = handler.onRejected.Call(nil, p.err)
		}
		return
	}
	if handler.onFulfilled != nil {
		_, _ = handler.onFulfilled.Call(nil, p.value)
	}
}

type settlement struct {
	value any
	err   error
}

// Await waits for v to settle, adopting nested thenables the way a promise
// resolution does. Non-thenable values are returned unchanged. When ctx ends
// first the wait is abandoned and context.Cause(ctx) is returned; a late
// settlement is dropped.
func Await(ctx context.Context, v any) (any, error) {
	for IsThenable(v) {
		settled := make(chan settlement, 1)
		v.(Thenable).Then(
			Func(func(_ any, args ...any) (any, error) {
				offer(settled, settlement{value: firstArg(args)})
				return nil, nil
			}),
			Func(func(_ any, args ...any) (any, error) {
				offer(settled, settlement{err: rejection(firstArg(args))})
				return nil, nil
			}),
		)
		select {
		case s := <-settled:
			if s.err != nil {
				return nil, s.err
			}
			v = s.value
		case <-ctx.Done():
			return nil, context.Cause(ctx)
		}
	}
	return v, nil
}

func offer(ch chan settlement, s settlement) {
	select {
	case ch <- s:
	default:
	}
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func rejection(reason any) error {
	switch r := reason.(type) {
	case error:
		return r
	case nil:
		return errors.New("promise rejected with undefined")
	default:
		return fmt.Errorf("promise rejected: %s", Stringify(r))
	}
}
