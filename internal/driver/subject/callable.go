package subject

import (
	"fmt"
	"path/filepath"
	"reflect"
	"runtime"
)

// Callable is implemented by script callbacks that can be invoked with a
// receiver and positional arguments.
type Callable interface {
	Call(this any, args ...any) (any, error)
}

// Func adapts an ordinary Go function to Callable.
type Func func(this any, args ...any) (any, error)

// Call invokes f.
func (f Func) Call(this any, args ...any) (any, error) { return f(this, args...) }

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// IsCallable reports whether v can be invoked with Call.
func IsCallable(v any) bool {
	if IsNil(v) {
		return false
	}
	if _, ok := v.(Callable); ok {
		return true
	}
	return reflect.TypeOf(v).Kind() == reflect.Func
}

// Call invokes fn with args. Callable values receive this; plain Go funcs
// are called through reflection with script-style argument handling:
// missing arguments are zero values and extra arguments are dropped. A
// trailing error result is returned as the error.
func Call(fn any, this any, args ...any) (any, error) {
	if c, ok := fn.(Callable); ok && !IsNil(fn) {
		return c.Call(this, args...)
	}
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, fmt.Errorf("%s is not a function", FriendlyTypeOf(fn))
	}
	in, err := callArgs(rv.Type(), args)
	if err != nil {
		return nil, err
	}
	return callResults(rv.Type(), rv.Call(in))
}

func callArgs(t reflect.Type, args []any) ([]reflect.Value, error) {
	fixed := t.NumIn()
	if t.IsVariadic() {
		fixed--
	}
	in := make([]reflect.Value, 0, max(fixed, len(args)))
	for i := 0; i < fixed; i++ {
		var arg any
		if i < len(args) {
			arg = args[i]
		}
		value, err := argValue(t.In(i), arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in = append(in, value)
	}
	if t.IsVariadic() {
		elem := t.In(fixed).Elem()
		for i := fixed; i < len(args); i++ {
			value, err := argValue(elem, args[i])
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			in = append(in, value)
		}
	}
	return in, nil
}

func argValue(t reflect.Type, arg any) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(t), nil
	}
	value := reflect.ValueOf(arg)
	if value.Type().AssignableTo(t) {
		return value, nil
	}
	if IsNull(arg) {
		return reflect.Zero(t), nil
	}
	if IsNumber(arg) && isNumericKind(t.Kind()) {
		return value.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", FriendlyTypeOf(arg), t)
}

func callResults(t reflect.Type, out []reflect.Value) (any, error) {
	if len(out) == 0 {
		return nil, nil
	}
	var err error
	if t.Out(len(out)-1) == errorType {
		if last := out[len(out)-1]; !last.IsNil() {
			err = last.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, err
	}
	return out[0].Interface(), err
}

func isNumericKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Describe returns a diagnostic string for a callback: its String method
// when it has one, otherwise the Go function name and source position.
func Describe(fn any) string {
	if s, ok := fn.(fmt.Stringer); ok && !IsNil(fn) {
		return s.String()
	}
	rv := reflect.ValueOf(fn)
	if rv.IsValid() && rv.Kind() == reflect.Func && !rv.IsNil() {
		if f := runtime.FuncForPC(rv.Pointer()); f != nil {
			file, line := f.FileLine(f.Entry())
			return fmt.Sprintf("func %s (%s:%d)", f.Name(), filepath.Base(file), line)
		}
	}
	return Stringify(fn)
}
