package chainscript

import (
	"errors"
	"strings"

	"github.com/Shopify/go-lua"
)

var errSessionClosed = errors.New("script session is closed")

// callback is a Lua function callable from Go. Functions are kept in a
// registry table so they survive the stack frame that passed them.
type callback struct {
	s     *session
	ref   int
	where string
}

// callback returns the callback for the function at index. A function
// passed again reuses its registry slot and callback.
func (s *session) callback(index int) *callback {
	l := s.state
	index = l.AbsIndex(index)

	l.Field(lua.RegistryIndex, callbackRefsKey)
	l.PushValue(index)
	l.RawGet(-2)
	if ref, ok := l.ToInteger(-1); ok {
		l.Pop(2)
		if cb, found := s.callbacks[ref]; found {
			return cb
		}
	} else {
		l.Pop(2)
	}

	lua.Where(l, 1)
	where, _ := l.ToString(-1)
	l.Pop(1)

	s.nextRef++
	ref := s.nextRef
	l.Field(lua.RegistryIndex, callbacksKey)
	l.PushValue(index)
	l.RawSetInt(-2, ref)
	l.Pop(1)

	l.Field(lua.RegistryIndex, callbackRefsKey)
	l.PushValue(index)
	l.PushInteger(ref)
	l.RawSet(-3)
	l.Pop(1)

	cb := &callback{s: s, ref: ref, where: strings.TrimSuffix(where, ":")}
	s.callbacks[ref] = cb
	return cb
}

func (s *session) pushRef(ref int) {
	l := s.state
	l.Field(lua.RegistryIndex, callbacksKey)
	l.RawGetInt(-1, ref)
	l.Remove(-2)
}

// Call runs the function with args and returns its first result. The
// receiver is not visible to Lua functions.
func (c *callback) Call(_ any, args ...any) (any, error) {
	if c.s.closed {
		return nil, errSessionClosed
	}
	l := c.s.state
	top := l.Top()
	defer l.SetTop(top)

	c.s.pushRef(c.ref)
	for _, arg := range args {
		c.s.push(arg)
	}
	if err := l.ProtectedCall(len(args), 1, 0); err != nil {
		return nil, err
	}
	return c.s.convert(-1)
}

// String names the script location the function was passed from.
func (c *callback) String() string {
	if c.where == "" {
		return "function"
	}
	return "function at " + c.where
}
