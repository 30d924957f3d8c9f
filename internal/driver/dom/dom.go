// Package dom provides the element and selection values the driver passes
// between commands. It is a minimal in-memory stand-in for a browser's
// element wrappers: enough for subjects to be recognised as elements,
// wrapped into selections and formatted for log records.
package dom

import (
	"sort"
	"strings"

	"github.com/louisbranch/drivechain/internal/driver/subject"
)

// Element is implemented by values that represent a document node.
type Element interface {
	NodeName() string
}

// Node is a simple document element with attributes and children.
type Node struct {
	Name     string
	Attrs    map[string]any
	Children []*Node
}

// NewNode returns a node named name with the given attributes.
func NewNode(name string, attrs map[string]any, children ...*Node) *Node {
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &Node{Name: name, Attrs: attrs, Children: children}
}

// NodeName returns the lower-cased tag name.
func (n *Node) NodeName() string { return strings.ToLower(n.Name) }

// Get reads an attribute, or the node's children under "children".
func (n *Node) Get(key string) (any, bool) {
	if key == "children" {
		return Wrap(n.children()...), true
	}
	value, ok := n.Attrs[key]
	return value, ok
}

// Keys lists the node's attribute names.
func (n *Node) Keys() []string {
	keys := make([]string, 0, len(n.Attrs)+1)
	for key := range n.Attrs {
		keys = append(keys, key)
	}
	return append(keys, "children")
}

func (n *Node) children() []Element {
	out := make([]Element, 0, len(n.Children))
	for _, child := range n.Children {
		out = append(out, child)
	}
	return out
}

func (n *Node) String() string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(n.NodeName())
	keys := make([]string, 0, len(n.Attrs))
	for key := range n.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(subject.Stringify(n.Attrs[key]))
	}
	b.WriteByte('>')
	return b.String()
}

// Selection is an ordered, array-like set of elements.
type Selection struct {
	elements []Element
	spread   bool
}

// Wrap returns a selection over elements.
func Wrap(elements ...Element) *Selection {
	return &Selection{elements: append([]Element(nil), elements...)}
}

// Len returns the number of selected elements.
func (s *Selection) Len() int { return len(s.elements) }

// At returns the element at i, or nil when out of range.
func (s *Selection) At(i int) any {
	if i < 0 || i >= len(s.elements) {
		return nil
	}
	return s.elements[i]
}

// Elements returns a copy of the selected elements.
func (s *Selection) Elements() []Element { return append([]Element(nil), s.elements...) }

// NodeName returns the name of the first element.
func (s *Selection) NodeName() string {
	if len(s.elements) == 0 {
		return ""
	}
	return s.elements[0].NodeName()
}

// MarkSpread sets the spread marker.
func (s *Selection) MarkSpread() { s.spread = true }

// Spread reports whether the spread marker is set.
func (s *Selection) Spread() bool { return s.spread }

func (s *Selection) String() string {
	parts := make([]string, 0, len(s.elements))
	for _, el := range s.elements {
		parts = append(parts, subject.Stringify(el))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// IsElement reports whether v is an element or a non-empty selection.
func IsElement(v any) bool {
	if subject.IsNil(v) {
		return false
	}
	switch x := v.(type) {
	case *Selection:
		return x.Len() > 0
	case Element:
		return true
	}
	return false
}

// IsEmptySelection reports whether v is a selection with no elements.
func IsEmptySelection(v any) bool {
	s, ok := v.(*Selection)
	return ok && s != nil && s.Len() == 0
}

// WrapValue wraps a bare element into a selection; selections and other
// values are returned unchanged.
func WrapValue(v any) any {
	if s, ok := v.(*Selection); ok {
		return s
	}
	if el, ok := v.(Element); ok && !subject.IsNil(v) {
		return Wrap(el)
	}
	return v
}

// Formatted returns the underlying elements of an element subject for log
// records, and any other value unchanged.
func Formatted(v any) any {
	if !IsElement(v) {
		return v
	}
	if s, ok := v.(*Selection); ok {
		return s.Elements()
	}
	return []Element{v.(Element)}
}
