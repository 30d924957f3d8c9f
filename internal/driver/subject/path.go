package subject

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Getter is implemented by subjects that expose named properties.
type Getter interface {
	Get(key string) (any, bool)
}

// Keyer is implemented by subjects that can list their property names.
type Keyer interface {
	Keys() []string
}

// ParsePath splits a property path into segments. Both "a.b.0" and
// "a.b[0]" address the same member; quoted bracket keys keep their dots.
func ParsePath(path any) []string {
	switch p := path.(type) {
	case string:
		return parsePathString(p)
	case nil:
		return nil
	default:
		return []string{pathKey(p)}
	}
}

func parsePathString(path string) []string {
	var (
		segments []string
		current  strings.Builder
	)
	flush := func() {
		segments = append(segments, current.String())
		current.Reset()
	}
	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '.':
			flush()
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				current.WriteByte(c)
				continue
			}
			if current.Len() > 0 {
				flush()
			}
			inner := path[i+1 : i+end]
			if unq, err := strconv.Unquote(inner); err == nil {
				inner = unq
			} else if len(inner) >= 2 && inner[0] == '\'' && inner[len(inner)-1] == '\'' {
				inner = inner[1 : len(inner)-1]
			}
			current.WriteString(inner)
			i += end
			flush()
			if i+1 < len(path) && path[i+1] == '.' {
				i++
			}
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 || len(segments) == 0 || strings.HasSuffix(path, ".") {
		flush()
	}
	return segments
}

func pathKey(v any) string {
	switch k := v.(type) {
	case string:
		return k
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(k), 'f', -1, 32)
	default:
		return fmt.Sprint(k)
	}
}

// Lookup reads path off v. A key that matches the whole path wins over a
// segmented read, so a map key "a.b" is found before a nested a -> b. found
// reports whether every segment existed, independent of the value being nil.
func Lookup(v any, path any) (value any, found bool) {
	key := pathKey(path)
	if value, found = Member(v, key); found {
		return value, true
	}
	segments := ParsePath(path)
	if len(segments) == 1 && segments[0] == key {
		return nil, false
	}
	return LookupSegments(v, segments)
}

// LookupSegments walks segments from v.
func LookupSegments(v any, segments []string) (any, bool) {
	current := v
	for _, segment := range segments {
		next, ok := Member(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Member reads one named member of v: a Getter key, an index or "length" of
// an array-like, a string-keyed map entry, an exported struct field (by Go
// name or json tag), or a method value.
func Member(v any, key string) (any, bool) {
	if IsNil(v) {
		return nil, false
	}
	if g, ok := v.(Getter); ok {
		if value, found := g.Get(key); found {
			return value, true
		}
	}
	if s, ok := v.(string); ok {
		if key == "length" {
			return utf8.RuneCountInString(s), true
		}
		if i, err := strconv.Atoi(key); err == nil && i >= 0 {
			runes := []rune(s)
			if i < len(runes) {
				return string(runes[i]), true
			}
		}
		return methodMember(reflect.ValueOf(v), key)
	}
	if a, ok := v.(ArrayLike); ok {
		if key == "length" {
			return a.Len(), true
		}
		if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < a.Len() {
			return a.At(i), true
		}
		return methodMember(reflect.ValueOf(v), key)
	}

	rv := reflect.ValueOf(v)
	base := rv
	for base.Kind() == reflect.Pointer || base.Kind() == reflect.Interface {
		if base.IsNil() {
			return nil, false
		}
		base = base.Elem()
	}
	switch base.Kind() {
	case reflect.Map:
		if base.Type().Key().Kind() == reflect.String {
			entry := base.MapIndex(reflect.ValueOf(key).Convert(base.Type().Key()))
			if entry.IsValid() {
				return entry.Interface(), true
			}
		}
	case reflect.Slice, reflect.Array:
		if key == "length" {
			return base.Len(), true
		}
		if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < base.Len() {
			return base.Index(i).Interface(), true
		}
	case reflect.Struct:
		if field, ok := structField(base, key); ok {
			return field, true
		}
	}
	return methodMember(rv, key)
}

func structField(rv reflect.Value, key string) (any, bool) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			if tagName, _, _ := strings.Cut(tag, ","); tagName != "" && tagName != "-" {
				if tagName == key {
					return rv.Field(i).Interface(), true
				}
			}
		}
		if name == key {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

func methodMember(rv reflect.Value, key string) (any, bool) {
	if key == "" || !rv.IsValid() {
		return nil, false
	}
	method := rv.MethodByName(exportedName(key))
	if !method.IsValid() {
		return nil, false
	}
	return method.Interface(), true
}

func exportedName(key string) string {
	r, size := utf8.DecodeRuneInString(key)
	return string(unicode.ToUpper(r)) + key[size:]
}

// Keys lists the property names of v in sorted order.
func Keys(v any) []string {
	if IsNil(v) {
		return nil
	}
	if k, ok := v.(Keyer); ok {
		keys := k.Keys()
		sort.Strings(keys)
		return keys
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	var keys []string
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		for _, key := range rv.MapKeys() {
			keys = append(keys, key.String())
		}
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			if field := t.Field(i); field.IsExported() {
				keys = append(keys, field.Name)
			}
		}
	case reflect.Slice, reflect.Array:
		keys = append(keys, "length")
	}
	sort.Strings(keys)
	return keys
}
