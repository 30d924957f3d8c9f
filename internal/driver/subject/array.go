package subject

import (
	"reflect"
	"unicode/utf8"
)

// ArrayLike is implemented by subjects with a length and index access.
type ArrayLike interface {
	Len() int
	At(i int) any
}

// Spreader is implemented by subjects that can carry the spread marker.
type Spreader interface {
	Spread() bool
}

// Array is an array-like subject that can carry the durable spread marker.
type Array struct {
	items  []any
	spread bool
}

// NewArray returns an Array holding a copy of items.
func NewArray(items ...any) *Array {
	return &Array{items: append([]any(nil), items...)}
}

// Len returns the number of items.
func (a *Array) Len() int { return len(a.items) }

// At returns the item at i, or nil when i is out of range.
func (a *Array) At(i int) any {
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

// Items returns a copy of the items.
func (a *Array) Items() []any { return append([]any(nil), a.items...) }

// MarkSpread sets the spread marker. It is never cleared.
func (a *Array) MarkSpread() { a.spread = true }

// Spread reports whether the spread marker is set.
func (a *Array) Spread() bool { return a.spread }

func (a *Array) String() string { return Stringify(a.items) }

// Length returns the length of an array-like v.
func Length(v any) (int, bool) {
	if IsNil(v) {
		return 0, false
	}
	switch x := v.(type) {
	case ArrayLike:
		return x.Len(), true
	case string:
		return utf8.RuneCountInString(x), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}

// IsArrayLike reports whether v exposes a length and index access.
func IsArrayLike(v any) bool {
	_, ok := Length(v)
	return ok
}

// ToSlice materializes an array-like v into a new slice. Strings split into
// one-character strings. Non array-like values yield nil.
func ToSlice(v any) []any {
	if IsNil(v) {
		return nil
	}
	switch x := v.(type) {
	case ArrayLike:
		out := make([]any, x.Len())
		for i := range out {
			out[i] = x.At(i)
		}
		return out
	case string:
		out := make([]any, 0, utf8.RuneCountInString(x))
		for _, r := range x {
			out = append(out, string(r))
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return nil
}

// IsSpread reports whether v carries the spread marker.
func IsSpread(v any) bool {
	if IsNil(v) {
		return false
	}
	s, ok := v.(Spreader)
	return ok && s.Spread()
}

// MarkSpread sets the spread marker on v and returns the marked subject.
// Values that cannot carry the marker are copied into an *Array that does.
func MarkSpread(v any) any {
	if m, ok := v.(interface{ MarkSpread() }); ok && !IsNil(v) {
		m.MarkSpread()
		return v
	}
	marked := NewArray(ToSlice(v)...)
	marked.MarkSpread()
	return marked
}
