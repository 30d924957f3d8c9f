package chainscript

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/louisbranch/drivechain/internal/driver/subject"
)

// errCyclicTable reports a table reachable from itself.
var errCyclicTable = errors.New("cannot convert a table that contains itself")

// args converts the Lua arguments from index first to the top of the stack.
// It raises a Lua error when an argument cannot be converted.
func (s *session) args(first int) []any {
	top := s.state.Top()
	if top < first {
		return nil
	}
	out := make([]any, 0, top-first+1)
	for i := first; i <= top; i++ {
		out = append(out, s.toGo(i))
	}
	return out
}

// toGo converts the Lua value at index, raising a Lua error on failure. Only
// call it from functions invoked by Lua.
func (s *session) toGo(index int) any {
	v, err := s.convert(index)
	if err != nil {
		lua.Errorf(s.state, "%s", err.Error())
	}
	return v
}

// convert converts the Lua value at index. Functions become callbacks,
// tables become slices or maps, userdata yields the Go value it carries.
func (s *session) convert(index int) (any, error) {
	c := converter{s: s, open: map[any]bool{}}
	return c.value(index)
}

// converter tracks the tables on the current conversion path.
type converter struct {
	s    *session
	open map[any]bool
}

func (c *converter) value(index int) (any, error) {
	l := c.s.state
	switch l.TypeOf(index) {
	case lua.TypeString:
		value, _ := l.ToString(index)
		return value, nil
	case lua.TypeNumber:
		value, _ := l.ToNumber(index)
		return normalizeNumber(value), nil
	case lua.TypeBoolean:
		return l.ToBoolean(index), nil
	case lua.TypeTable:
		return c.table(index)
	case lua.TypeUserData:
		return l.ToUserData(index), nil
	case lua.TypeFunction:
		return c.s.callback(index), nil
	default:
		return nil, nil
	}
}

// table converts a table to a slice when its keys are exactly 1..n, and to a
// map of its string keys otherwise. An empty table is an empty slice: Lua
// cannot tell {} the map from {} the sequence, and collection commands need
// the latter.
func (c *converter) table(index int) (any, error) {
	l := c.s.state
	index = l.AbsIndex(index)
	id := l.ToValue(index)
	if c.open[id] {
		return nil, errCyclicTable
	}
	c.open[id] = true
	defer delete(c.open, id)

	isArray := true
	maxIndex := 0
	count := 0
	l.PushNil()
	for l.Next(index) {
		if isArray {
			if l.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := l.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		l.Pop(1)
	}

	if isArray && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			l.RawGetInt(index, i)
			item, err := c.value(-1)
			l.Pop(1)
			if err != nil {
				return nil, err
			}
			result = append(result, item)
		}
		return result, nil
	}
	return c.fields(index)
}

func (c *converter) fields(index int) (map[string]any, error) {
	l := c.s.state
	output := map[string]any{}
	l.PushNil()
	for l.Next(index) {
		if l.TypeOf(-2) == lua.TypeString {
			key, _ := l.ToString(-2)
			value, err := c.value(-1)
			if err != nil {
				l.Pop(2)
				return nil, err
			}
			output[key] = value
		}
		l.Pop(1)
	}
	return output, nil
}

// tableToMap converts the string keys of the table at index, raising a Lua
// error on failure. Non-tables give an empty map.
func tableToMap(s *session, index int) map[string]any {
	l := s.state
	if l.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	index = l.AbsIndex(index)
	c := converter{s: s, open: map[any]bool{l.ToValue(index): true}}
	output, err := c.fields(index)
	if err != nil {
		lua.Errorf(l, "%s", err.Error())
	}
	return output
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 && math.Abs(value) < 1<<53 {
		return int(value)
	}
	return value
}

// push converts a Go value onto the Lua stack. Plain data becomes Lua
// values; anything else is carried as userdata with read access.
func (s *session) push(v any) {
	l := s.state
	switch x := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(x)
	case string:
		l.PushString(x)
	case *chain:
		l.PushUserData(x)
		lua.SetMetaTableNamed(l, chainTypeName)
	case *callback:
		s.pushRef(x.ref)
	case []any:
		s.pushList(x)
	case *subject.Array:
		s.pushList(x.Items())
	case map[string]any:
		l.CreateTable(0, len(x))
		keys := make([]string, 0, len(x))
		for key := range x {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			s.push(x[key])
			l.SetField(-2, key)
		}
	default:
		if f, ok := subject.Float(v); ok {
			l.PushNumber(f)
			return
		}
		l.PushUserData(v)
		lua.SetMetaTableNamed(l, valueTypeName)
	}
}

func (s *session) pushList(items []any) {
	l := s.state
	l.CreateTable(len(items), 0)
	for i, item := range items {
		s.push(item)
		l.RawSetInt(-2, i+1)
	}
}

// memberKey turns a Lua index key into a property name. Numeric keys index
// Go values from zero.
func memberKey(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case int:
		return strconv.Itoa(k)
	}
	return strings.TrimSpace(subject.Stringify(key))
}
