package connectors

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/drivechain/internal/driver/cmdlog"
	"github.com/louisbranch/drivechain/internal/driver/command"
	"github.com/louisbranch/drivechain/internal/driver/dom"
	"github.com/louisbranch/drivechain/internal/driver/subject"
	apperrors "github.com/louisbranch/drivechain/internal/platform/errors"
)

func metadataOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an *apperrors.Error", err)
	}
	return appErr.Metadata
}

func requireCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		got, _ := apperrors.CodeOf(err)
		t.Fatalf("error code = %q, want %q (%v)", got, code, err)
	}
}

func TestReturnFalseIfThenableVetoesPromiseAdoption(t *testing.T) {
	calls := 0
	var gotArgs []any
	onFulfilled := subject.Func(func(_ any, args ...any) (any, error) {
		calls++
		gotArgs = args
		return nil, nil
	})
	onRejected := func(error) {}

	if ReturnFalseIfThenable("then", []any{onFulfilled, onRejected}) {
		t.Fatal("expected then(fn, fn) to be vetoed")
	}
	if calls != 1 {
		t.Fatalf("onFulfilled calls = %d, want 1", calls)
	}
	if len(gotArgs) != 0 {
		t.Fatalf("onFulfilled args = %v, want none", gotArgs)
	}
}

func TestReturnFalseIfThenableAllowsOtherShapes(t *testing.T) {
	fn := func() {}
	tests := []struct {
		name string
		cmd  string
		args []any
	}{
		{name: "user then", cmd: "then", args: []any{fn}},
		{name: "options then", cmd: "then", args: []any{map[string]any{}, fn}},
		{name: "then with value", cmd: "then", args: []any{fn, 1}},
		{name: "no args", cmd: "then"},
		{name: "other command", cmd: "each", args: []any{fn, fn}},
		{name: "nil funcs", cmd: "then", args: []any{(func())(nil), (func())(nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !ReturnFalseIfThenable(tt.cmd, tt.args) {
				t.Fatalf("ReturnFalseIfThenable(%s, %v) = false, want true", tt.cmd, tt.args)
			}
		})
	}
}

func TestThenUndefinedYieldsSubject(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("then", command.Dual)
	subj := map[string]any{"a": 1}

	got, err := Then(context.Background(), ex, subj, Options{}, func(v any) {})
	if err != nil {
		t.Fatalf("then: %v", err)
	}
	if !reflect.DeepEqual(got, subj) {
		t.Fatalf("result = %v, want %v", got, subj)
	}
	if s.breaks != 0 {
		t.Fatalf("breaks = %d, want 0", s.breaks)
	}
	if s.clearTimeouts != 1 {
		t.Fatalf("clear timeout calls = %d, want 1", s.clearTimeouts)
	}
}

func TestThenValueReplacesSubjectAndBreaksChain(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("then", command.Dual)

	var received any
	got, err := Then(context.Background(), ex, "subj", Options{}, func(v any) int {
		received = v
		return 42
	})
	if err != nil {
		t.Fatalf("then: %v", err)
	}
	if got != 42 {
		t.Fatalf("result = %v, want 42", got)
	}
	if received != "subj" {
		t.Fatalf("callback arg = %v, want subj", received)
	}
	if s.breaks != 1 {
		t.Fatalf("breaks = %d, want 1", s.breaks)
	}
}

func TestThenNullIsAValue(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("then", command.Dual)
	got, err := Then(context.Background(), ex, "subj", Options{}, func() any { return subject.Null })
	if err != nil {
		t.Fatalf("then: %v", err)
	}
	if !subject.IsNull(got) {
		t.Fatalf("result = %v, want null", got)
	}
}

func TestThenMixedSyncAsync(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("then", command.Dual)
	ex.Command.Set(command.AttrLog, s.NewLog(cmdlog.Options{Name: "then"}))

	_, err := Then(context.Background(), ex, nil, Options{}, func() string {
		s.enqueue("log", "nested")
		return "sync"
	})
	requireCode(t, err, apperrors.CodeMixedSyncAsync)
	if got := metadataOf(t, err)["Value"]; got != `"sync"` {
		t.Fatalf("value = %q, want %q", got, `"sync"`)
	}
	if ex.Command.Log().State() != cmdlog.StateFailed {
		t.Fatal("expected command log to be failed")
	}
}

func TestThenNestedCommandWithFalsyOrPromiseReturnIsAllowed(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("then", command.Dual)

	got, err := Then(context.Background(), ex, "subj", Options{}, func() {
		s.enqueue("log", "nested")
	})
	if err != nil || got != "subj" {
		t.Fatalf("then = %v, %v, want subj, nil", got, err)
	}

	got, err = Then(context.Background(), ex, "subj", Options{}, func() any {
		s.enqueue("log", "nested")
		return subject.Resolved("async")
	})
	if err != nil || got != "async" {
		t.Fatalf("then = %v, %v, want async, nil", got, err)
	}
}

func TestThenTimesOut(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("then", command.Dual)

	start := time.Now()
	_, err := Then(context.Background(), ex, nil, Options{Timeout: 10 * time.Millisecond}, func() any {
		return subject.NewPromise(nil)
	})
	elapsed := time.Since(start)

	requireCode(t, err, apperrors.CodeTimedOut)
	meta := metadataOf(t, err)
	if meta["Cmd"] != "then" || meta["Timeout"] != "10ms" {
		t.Fatalf("metadata = %v, want Cmd=then Timeout=10ms", meta)
	}
	if !strings.Contains(meta["Func"], "connectors") {
		t.Fatalf("func = %q, want the callback's name", meta["Func"])
	}
	if elapsed < 10*time.Millisecond || elapsed > time.Second {
		t.Fatalf("elapsed = %v, want about 10ms", elapsed)
	}
}

func TestThenUsesDefaultTimeout(t *testing.T) {
	s := newFakeScheduler()
	s.timeout = 5 * time.Millisecond
	ex := s.exec("then", command.Dual)
	_, err := Then(context.Background(), ex, nil, Options{}, func() any { return subject.NewPromise(nil) })
	requireCode(t, err, apperrors.CodeTimedOut)
	if got := metadataOf(t, err)["Timeout"]; got != "5ms" {
		t.Fatalf("timeout = %q, want 5ms", got)
	}
}

func TestThenAwaitsPromises(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("then", command.Dual)
	got, err := Then(context.Background(), ex, 1, Options{}, func(n int) any {
		return subject.Async(func() (any, error) { return n + 1, nil })
	})
	if err != nil || got != 2 {
		t.Fatalf("then = %v, %v, want 2, nil", got, err)
	}

	boom := errors.New("boom")
	_, err = Then(context.Background(), ex, 1, Options{}, func() any { return subject.Rejected(boom) })
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
}

func TestThenReturnsCallbackError(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("then", command.Dual)
	boom := errors.New("boom")
	if _, err := Then(context.Background(), ex, nil, Options{}, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
}

func TestThenTearsDownObserversOnEveryPath(t *testing.T) {
	previous := InjectHook(func(string, []any) bool { return true })
	callbacks := map[string]any{
		"success": func() int { return 1 },
		"error":   func() error { return errors.New("boom") },
		"mixed":   nil,
		"timeout": func() any { return subject.NewPromise(nil) },
	}
	for name, fn := range callbacks {
		t.Run(name, func(t *testing.T) {
			s := newFakeScheduler()
			s.hook = previous
			ex := s.exec("then", command.Dual)
			if fn == nil {
				fn = func() int {
					s.enqueue("log")
					return 1
				}
			}
			_, _ = Then(context.Background(), ex, nil, Options{Timeout: 5 * time.Millisecond}, fn)
			if len(s.listeners) != 0 {
				t.Fatalf("listeners = %d, want 0", len(s.listeners))
			}
			if s.hook == nil || reflect.ValueOf(s.hook).Pointer() != reflect.ValueOf(previous).Pointer() {
				t.Fatal("expected previous inject hook to be restored")
			}
		})
	}
}

// chainLike is thenable the way a script chain is: Then enqueues a "then"
// command carrying both callbacks.
type chainLike struct{ s *fakeScheduler }

func (c chainLike) Then(onFulfilled, onRejected subject.Callable) {
	c.s.enqueue("then", onFulfilled, onRejected)
}

func TestThenReturningChainIsNotQueuedAgain(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("then", command.Dual)

	got, err := Then(context.Background(), ex, "outer", Options{}, func() any {
		s.enqueue("wrap", "inner")
		return chainLike{s: s}
	})
	if err != nil {
		t.Fatalf("then: %v", err)
	}
	if got != "outer" {
		t.Fatalf("result = %v, want outer", got)
	}
	if len(s.enqueued) != 1 || s.enqueued[0].Name() != "wrap" {
		t.Fatalf("enqueued = %d commands, want only wrap", len(s.enqueued))
	}
}

func TestThenPassesRemoteHandle(t *testing.T) {
	s := newFakeScheduler()
	s.remote = func(v any) (any, bool) {
		if v == "frame-el" {
			return "proxy", true
		}
		return nil, false
	}
	ex := s.exec("then", command.Dual)
	var received any
	_, err := Then(context.Background(), ex, "frame-el", Options{}, func(v any) { received = v })
	if err != nil {
		t.Fatalf("then: %v", err)
	}
	if received != "proxy" {
		t.Fatalf("callback arg = %v, want proxy", received)
	}
}

func TestThenBindsThis(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("then", command.Dual)
	ex.This = "ctx"
	var this any
	_, err := Then(context.Background(), ex, 1, Options{}, subject.Func(func(self any, _ ...any) (any, error) {
		this = self
		return nil, nil
	}))
	if err != nil {
		t.Fatalf("then: %v", err)
	}
	if this != "ctx" {
		t.Fatalf("this = %v, want ctx", this)
	}
}

func TestSpreadPassesDiscreteArguments(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("spread", command.Child)

	var got []any
	result, err := Spread(context.Background(), ex, []int{1, 2}, func(a, b int) {
		got = []any{a, b}
	})
	if err != nil {
		t.Fatalf("spread: %v", err)
	}
	if !reflect.DeepEqual(got, []any{1, 2}) {
		t.Fatalf("args = %v, want [1 2]", got)
	}
	if !subject.IsSpread(result) {
		t.Fatal("expected yielded subject to keep the spread marker")
	}
}

func TestSpreadKeepsMarkerOnArray(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("spread", command.Child)
	arr := subject.NewArray("a", "b", "c")

	var count int
	_, err := Spread(context.Background(), ex, arr, map[string]any{"timeout": 100}, subject.Func(func(_ any, args ...any) (any, error) {
		count = len(args)
		return nil, nil
	}))
	if err != nil {
		t.Fatalf("spread: %v", err)
	}
	if count != 3 {
		t.Fatalf("arg count = %d, want 3", count)
	}
	if !arr.Spread() {
		t.Fatal("expected array to be marked")
	}

	var single []any
	_, err = Then(context.Background(), s.exec("then", command.Dual), arr, Options{}, subject.Func(func(_ any, args ...any) (any, error) {
		single = args
		return nil, nil
	}))
	if err != nil {
		t.Fatalf("then: %v", err)
	}
	if len(single) != 3 {
		t.Fatalf("later then args = %d, want 3 (marker is durable)", len(single))
	}
}

func TestSpreadRejectsNonArrayLike(t *testing.T) {
	s := newFakeScheduler()
	_, err := Spread(context.Background(), s.exec("spread", command.Child), map[string]any{}, func() {})
	requireCode(t, err, apperrors.CodeInvalidSpreadType)

	_, err = Spread(context.Background(), s.exec("spread", command.Child), []int{1}, "nope")
	requireCode(t, err, apperrors.CodeThenInvalidArgument)
}

func TestEachStopsOnFalse(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("each", command.Child)
	subj := []int{1, 2, 3}

	var indices []int
	got, err := Each(context.Background(), ex, subj, func(el, index int, whole []int) bool {
		indices = append(indices, index)
		if len(whole) != 3 {
			t.Fatalf("whole = %v, want 3 elements", whole)
		}
		return index != 1
	})
	if err != nil {
		t.Fatalf("each: %v", err)
	}
	if !reflect.DeepEqual(indices, []int{0, 1}) {
		t.Fatalf("indices = %v, want [0 1]", indices)
	}
	if !reflect.DeepEqual(got, subj) {
		t.Fatalf("result = %v, want %v", got, subj)
	}
	if s.breaks == 0 {
		t.Fatal("expected subject chain to be broken")
	}
}

func TestEachEmptySubject(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("each", command.Child)
	calls := 0
	subj := []int{}
	got, err := Each(context.Background(), ex, subj, func() { calls++ })
	if err != nil {
		t.Fatalf("each: %v", err)
	}
	if calls != 0 {
		t.Fatalf("calls = %d, want 0", calls)
	}
	if !reflect.DeepEqual(got, subj) {
		t.Fatalf("result = %v, want []", got)
	}
	if s.clearTimeouts != 0 || s.breaks != 0 {
		t.Fatal("expected empty each to return without running callbacks")
	}
}

func TestEachSequentialAndWrapsElements(t *testing.T) {
	s := newFakeScheduler()
	ex := s.exec("each", command.Child)
	nodes := dom.Wrap(dom.NewNode("li", nil), dom.NewNode("li", nil))

	var order []int
	_, err := Each(context.Background(), ex, nodes, map[string]any{"timeout": 50}, func(el any, index int) any {
		if _, ok := el.(*dom.Selection); !ok {
			t.Fatalf("element = %T, want *dom.Selection", el)
		}
		return subject.Async(func() (any, error) {
			time.Sleep(time.Millisecond)
			order = append(order, index)
			return nil, nil
		})
	})
	if err != nil {
		t.Fatalf("each: %v", err)
	}
	if !reflect.DeepEqual(order, []int{0, 1}) {
		t.Fatalf("order = %v, want [0 1]", order)
	}
}

func TestEachErrors(t *testing.T) {
	s := newFakeScheduler()

	_, err := Each(context.Background(), s.exec("each", command.Child), []int{1}, "nope")
	requireCode(t, err, apperrors.CodeEachInvalidArgument)

	_, err = Each(context.Background(), s.exec("each", command.Child), 42, func() {})
	requireCode(t, err, apperrors.CodeNonArraySubject)
	if got := metadataOf(t, err)["Subject"]; got != "42" {
		t.Fatalf("subject = %q, want 42", got)
	}

	boom := errors.New("boom")
	calls := 0
	_, err = Each(context.Background(), s.exec("each", command.Child), []int{1, 2}, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("each = %v after %d calls, want boom after 1", err, calls)
	}
}

func TestEachTimeoutNamesEach(t *testing.T) {
	s := newFakeScheduler()
	_, err := Each(context.Background(), s.exec("each", command.Child), []int{1}, map[string]any{"timeout": 5}, func() any {
		return subject.NewPromise(nil)
	})
	requireCode(t, err, apperrors.CodeTimedOut)
	if got := metadataOf(t, err)["Cmd"]; got != "each" {
		t.Fatalf("cmd = %q, want each", got)
	}
}
