package command

import (
	"testing"
	"time"

	"github.com/louisbranch/drivechain/internal/driver/cmdlog"
)

func TestCommandAttributes(t *testing.T) {
	cmd := New("its", Query, "a")
	if got := cmd.Get(AttrTimeout); got != nil {
		t.Fatalf("timeout = %v, want nil", got)
	}
	if _, ok := cmd.Timeout(); ok {
		t.Fatal("expected no timeout")
	}

	cmd.Set(AttrTimeout, 50*time.Millisecond)
	if got, ok := cmd.Timeout(); !ok || got != 50*time.Millisecond {
		t.Fatalf("timeout = %v, %v, want 50ms, true", got, ok)
	}

	cmd.Set(AttrEnsureExistenceFor, "subject")
	cmd.Set(AttrEnsureExistenceFor, nil)
	if got := cmd.Get(AttrEnsureExistenceFor); got != nil {
		t.Fatalf("ensureExistenceFor = %v, want nil", got)
	}
}

func TestCommandArgsAreCopied(t *testing.T) {
	args := []any{"a", "b"}
	cmd := New("invoke", Query, args...)
	args[0] = "changed"
	if got := cmd.Args()[0]; got != "a" {
		t.Fatalf("args[0] = %v, want a", got)
	}
}

func TestCommandLinksAndLog(t *testing.T) {
	first := New("wrap", Parent, 1)
	second := New("should", Assertion, "eq", 1)
	first.SetNext(second)
	if first.Next() != second {
		t.Fatal("expected next link")
	}
	if first.Log() != nil {
		t.Fatal("expected no log")
	}

	log := cmdlog.NewLogger(nil).New(cmdlog.Options{Name: "wrap"})
	first.Set(AttrLog, log)
	if first.Log() != log {
		t.Fatal("expected attached log")
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		Parent:    "parent",
		Child:     "child",
		Dual:      "dual",
		Query:     "query",
		Assertion: "assertion",
		Kind(99):  "unknown",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Fatalf("Kind(%d) = %q, want %q", int(kind), got, want)
		}
	}
}
