package chainscript

import (
	"github.com/Shopify/go-lua"

	"github.com/louisbranch/drivechain/internal/driver/dom"
	"github.com/louisbranch/drivechain/internal/driver/queue"
	"github.com/louisbranch/drivechain/internal/driver/subject"
)

const (
	chainTypeName   = "chain"
	valueTypeName   = "value"
	callbacksKey    = "drivechain.callbacks"
	callbackRefsKey = "drivechain.callback_refs"
)

// session is one script run: a Lua state bound to a queue.
type session struct {
	state     *lua.State
	queue     *queue.Queue
	nextRef   int
	callbacks map[int]*callback
	closed    bool
}

// chain is the userdata returned by cy commands. Its methods enqueue
// commands and return the same chain.
type chain struct {
	s *session
}

// Then enqueues a then command carrying both callbacks, which makes a chain
// adoptable by promises.
func (c *chain) Then(onFulfilled, onRejected subject.Callable) {
	c.s.queue.Enqueue("then", onFulfilled, onRejected)
}

func (c *chain) String() string { return "chain" }

func newSession(q *queue.Queue) *session {
	state := lua.NewState()
	lua.OpenLibraries(state)
	s := &session{state: state, queue: q, callbacks: map[int]*callback{}}

	state.NewTable()
	state.SetField(lua.RegistryIndex, callbacksKey)
	state.NewTable()
	state.SetField(lua.RegistryIndex, callbackRefsKey)

	s.registerChainType()
	s.registerValueType()
	s.registerCy()
	s.registerDOM()
	return s
}

// close releases the functions held for Go. Callbacks fail once the
// session is closed.
func (s *session) close() {
	if s.closed {
		return
	}
	s.closed = true
	s.callbacks = nil
	s.state.PushNil()
	s.state.SetField(lua.RegistryIndex, callbacksKey)
	s.state.PushNil()
	s.state.SetField(lua.RegistryIndex, callbackRefsKey)
}

func (s *session) registerChainType() {
	l := s.state
	lua.NewMetaTable(l, chainTypeName)
	l.NewTable()
	lua.SetFunctions(l, []lua.RegistryFunction{
		{Name: "then", Function: s.chainCommand("then")},
		{Name: "then_", Function: s.chainCommand("then")},
		{Name: "next", Function: s.chainCommand("then")},
		{Name: "its", Function: s.chainCommand("its")},
		{Name: "invoke", Function: s.chainCommand("invoke")},
		{Name: "each", Function: s.chainCommand("each")},
		{Name: "spread", Function: s.chainCommand("spread")},
		{Name: "should", Function: s.chainCommand("should")},
	}, 0)
	l.SetField(-2, "__index")
	l.Pop(1)
}

// registerValueType gives Go values read access from scripts: fields and
// indexes through __index, length, calls and printing.
func (s *session) registerValueType() {
	l := s.state
	lua.NewMetaTable(l, valueTypeName)
	lua.SetFunctions(l, []lua.RegistryFunction{
		{Name: "__index", Function: s.valueIndex},
		{Name: "__len", Function: s.valueLen},
		{Name: "__call", Function: s.valueCall},
		{Name: "__tostring", Function: s.valueString},
	}, 0)
	l.Pop(1)
}

func (s *session) registerCy() {
	l := s.state
	l.NewTable()
	lua.SetFunctions(l, []lua.RegistryFunction{
		{Name: "wrap", Function: s.cyCommand("wrap")},
		{Name: "log", Function: s.cyCommand("log")},
	}, 0)
	s.push(subject.Null)
	l.SetField(-2, "null")
	l.SetGlobal("cy")
}

func (s *session) registerDOM() {
	l := s.state
	l.NewTable()
	lua.SetFunctions(l, []lua.RegistryFunction{
		{Name: "el", Function: s.domElement},
		{Name: "select", Function: s.domSelect},
	}, 0)
	l.SetGlobal("dom")
}

// cyCommand enqueues a parent command and returns a new chain. Both
// cy.wrap(v) and cy:wrap(v) are accepted.
func (s *session) cyCommand(name string) lua.Function {
	return func(l *lua.State) int {
		first := 1
		if l.TypeOf(1) == lua.TypeTable {
			l.Global("cy")
			if l.RawEqual(1, -1) {
				first = 2
			}
			l.Pop(1)
		}
		s.queue.Enqueue(name, s.args(first)...)
		s.push(&chain{s: s})
		return 1
	}
}

func (s *session) chainCommand(name string) lua.Function {
	return func(l *lua.State) int {
		checkChain(l)
		s.queue.Enqueue(name, s.args(2)...)
		l.PushValue(1)
		return 1
	}
}

func checkChain(l *lua.State) *chain {
	ud := lua.CheckUserData(l, 1, chainTypeName)
	if c, ok := ud.(*chain); ok && c != nil {
		return c
	}
	lua.ArgumentError(l, 1, "chain expected")
	return nil
}

func (s *session) valueIndex(l *lua.State) int {
	v := l.ToUserData(1)
	key := s.toGo(2)
	value, found := subject.Member(v, memberKey(key))
	if !found {
		l.PushNil()
		return 1
	}
	s.push(value)
	return 1
}

func (s *session) valueLen(l *lua.State) int {
	n, _ := subject.Length(l.ToUserData(1))
	l.PushInteger(n)
	return 1
}

func (s *session) valueCall(l *lua.State) int {
	fn := l.ToUserData(1)
	result, err := subject.Call(fn, nil, s.args(2)...)
	if err != nil {
		lua.Errorf(l, "%s", err.Error())
		return 0
	}
	s.push(result)
	return 1
}

func (s *session) valueString(l *lua.State) int {
	l.PushString(subject.Stringify(l.ToUserData(1)))
	return 1
}

// domElement builds an element: dom.el(name[, attrs[, children...]]).
func (s *session) domElement(l *lua.State) int {
	name := lua.CheckString(l, 1)
	var attrs map[string]any
	if l.TypeOf(2) == lua.TypeTable {
		attrs = tableToMap(s, 2)
	}
	var children []*dom.Node
	for i := 3; i <= l.Top(); i++ {
		if child, ok := l.ToUserData(i).(*dom.Node); ok {
			children = append(children, child)
		}
	}
	s.push(dom.NewNode(name, attrs, children...))
	return 1
}

// domSelect wraps elements into a selection: dom.select(el...).
func (s *session) domSelect(l *lua.State) int {
	var elements []dom.Element
	for i := 1; i <= l.Top(); i++ {
		if el, ok := l.ToUserData(i).(dom.Element); ok {
			elements = append(elements, el)
		}
	}
	s.push(dom.Wrap(elements...))
	return 1
}
