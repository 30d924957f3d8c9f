package subject

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const maxStringifyDepth = 3

// Stringify renders v for error messages and log records.
func Stringify(v any) string {
	var b strings.Builder
	stringify(&b, v, 0)
	return b.String()
}

func stringify(b *strings.Builder, v any, depth int) {
	switch {
	case v == nil:
		b.WriteString("undefined")
		return
	case IsNull(v):
		b.WriteString("null")
		return
	}
	switch x := v.(type) {
	case string:
		b.WriteString(strconv.Quote(x))
		return
	case bool:
		b.WriteString(strconv.FormatBool(x))
		return
	case error:
		b.WriteString(x.Error())
		return
	case Callable:
		if s, ok := v.(fmt.Stringer); ok {
			b.WriteString(s.String())
			return
		}
		b.WriteString("function")
		return
	case ArrayLike:
		if s, ok := v.(fmt.Stringer); ok && depth == 0 {
			if _, isArray := v.(*Array); !isArray {
				b.WriteString(s.String())
				return
			}
		}
		stringifyList(b, ToSlice(x), depth)
		return
	case fmt.Stringer:
		b.WriteString(x.String())
		return
	}
	if IsNumber(v) {
		fmt.Fprint(b, v)
		return
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Func:
		b.WriteString("function")
	case reflect.Slice, reflect.Array:
		stringifyList(b, ToSlice(rv.Interface()), depth)
	case reflect.Map, reflect.Struct:
		if depth >= maxStringifyDepth {
			b.WriteString("{...}")
			return
		}
		keys := Keys(rv.Interface())
		b.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			value, _ := Member(rv.Interface(), key)
			b.WriteString(key)
			b.WriteString(": ")
			stringify(b, value, depth+1)
		}
		b.WriteByte('}')
	default:
		fmt.Fprint(b, v)
	}
}

func stringifyList(b *strings.Builder, items []any, depth int) {
	if depth >= maxStringifyDepth {
		b.WriteString("[...]")
		return
	}
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		stringify(b, item, depth+1)
	}
	b.WriteByte(']')
}

// FriendlyTypeOf names the kind of v the way a script author would.
func FriendlyTypeOf(v any) string {
	switch {
	case v == nil:
		return "undefined"
	case IsNull(v):
		return "null"
	case IsCallable(v):
		return "function"
	case IsNumber(v):
		return "number"
	}
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if IsArrayLike(v) {
		return "array"
	}
	return "object"
}
