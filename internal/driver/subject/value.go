package subject

import (
	"math"
	"reflect"
)

type null struct{}

func (null) String() string { return "null" }

// Null is the explicit null value. Callbacks that want to yield null rather
// than "nothing" return Null; a Go nil means undefined.
var Null any = null{}

// IsUndefined reports whether v is the undefined value (a Go nil).
func IsUndefined(v any) bool {
	return v == nil
}

// IsNull reports whether v is null: the Null sentinel or a nil pointer,
// func, chan or interface.
func IsNull(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.(null); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// IsNil reports whether v is null or undefined.
func IsNil(v any) bool {
	return v == nil || IsNull(v)
}

// Truthy reports whether v would pass a boolean test in a script: nil
// values, false, zero numbers, NaN and the empty string are falsy.
func Truthy(v any) bool {
	if IsNil(v) {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// IsNumber reports whether v holds a Go numeric value.
func IsNumber(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// IsZeroNumber reports whether v is a numeric zero.
func IsZeroNumber(v any) bool {
	return IsNumber(v) && !Truthy(v) && !isNaN(v)
}

// IsStringOrNumber reports whether v is usable as a property path.
func IsStringOrNumber(v any) bool {
	if _, ok := v.(string); ok {
		return true
	}
	return IsNumber(v)
}

func isNaN(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return math.IsNaN(rv.Float())
	}
	return false
}

// Float returns a numeric v as a float64.
func Float(v any) (float64, bool) {
	if !IsNumber(v) {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	default:
		return float64(rv.Int()), true
	}
}
