package dom

import (
	"testing"

	"github.com/louisbranch/drivechain/internal/driver/subject"
)

func TestNodeIsElementAndGetter(t *testing.T) {
	button := NewNode("BUTTON", map[string]any{"id": "save"})
	if !IsElement(button) {
		t.Fatal("expected node to be an element")
	}
	if got := button.NodeName(); got != "button" {
		t.Fatalf("node name = %q, want %q", got, "button")
	}
	value, found := subject.Lookup(button, "id")
	if !found || value != "save" {
		t.Fatalf("id = %v, %v, want save, true", value, found)
	}
}

func TestSelectionIsArrayLike(t *testing.T) {
	list := NewNode("ul", nil, NewNode("li", nil), NewNode("li", nil))
	children, found := subject.Lookup(list, "children")
	if !found {
		t.Fatal("expected children")
	}
	if n, ok := subject.Length(children); !ok || n != 2 {
		t.Fatalf("children length = %d, %v, want 2, true", n, ok)
	}
	if !IsElement(children) {
		t.Fatal("expected non-empty selection to be an element")
	}
	if IsElement(Wrap()) {
		t.Fatal("expected empty selection not to be an element")
	}
	if !IsEmptySelection(Wrap()) {
		t.Fatal("expected empty selection")
	}
}

func TestWrapValue(t *testing.T) {
	node := NewNode("div", nil)
	wrapped, ok := WrapValue(node).(*Selection)
	if !ok || wrapped.Len() != 1 || wrapped.At(0) != Element(node) {
		t.Fatalf("WrapValue(node) = %v, want selection of node", wrapped)
	}
	sel := Wrap(node)
	if got := WrapValue(sel); got != any(sel) {
		t.Fatalf("WrapValue(selection) = %v, want same selection", got)
	}
	if got := WrapValue(3); got != 3 {
		t.Fatalf("WrapValue(3) = %v, want 3", got)
	}
}

func TestSelectionSpreadMarker(t *testing.T) {
	sel := Wrap(NewNode("a", nil), NewNode("b", nil))
	marked := subject.MarkSpread(sel)
	if marked != any(sel) {
		t.Fatal("expected selection to carry the spread marker itself")
	}
	if !subject.IsSpread(sel) {
		t.Fatal("expected selection to be marked")
	}
}

func TestFormatted(t *testing.T) {
	node := NewNode("p", map[string]any{"class": "lead"})
	got, ok := Formatted(node).([]Element)
	if !ok || len(got) != 1 {
		t.Fatalf("Formatted(node) = %v, want one element", got)
	}
	if got := Formatted("text"); got != "text" {
		t.Fatalf("Formatted(text) = %v, want text", got)
	}
	if got := node.String(); got != `<p class="lead">` {
		t.Fatalf("String = %q, want %q", got, `<p class="lead">`)
	}
}
