package tree

import (
	"github.com/antchfx/xpath"
)

// Navigator walks a Document for github.com/antchfx/xpath. An attr index
// of -1 means the cursor is on the node itself, not on an attribute.
type Navigator struct {
	doc  *Document
	curr NodeID
	attr int
}

// NewNavigator returns a navigator positioned at id.
func NewNavigator(doc *Document, id NodeID) *Navigator {
	return &Navigator{doc: doc, curr: id, attr: -1}
}

// Current returns the node under the cursor.
func (x *Navigator) Current() NodeID { return x.curr }

func (x *Navigator) NodeType() xpath.NodeType {
	switch x.doc.nodes[x.curr].kind {
	case DocumentNode:
		return xpath.RootNode
	case TextNode:
		return xpath.TextNode
	}
	if x.attr != -1 {
		return xpath.AttributeNode
	}
	return xpath.ElementNode
}

func (x *Navigator) LocalName() string {
	if x.attr != -1 {
		return x.doc.nodes[x.curr].attrs[x.attr].Name
	}
	return x.doc.nodes[x.curr].name
}

func (x *Navigator) Prefix() string { return "" }

func (x *Navigator) Value() string {
	n := &x.doc.nodes[x.curr]
	switch n.kind {
	case TextNode:
		return n.text
	case ElementNode:
		if x.attr != -1 {
			return n.attrs[x.attr].Value
		}
	}
	return x.doc.TextDeep(x.curr)
}

func (x *Navigator) Copy() xpath.NodeNavigator {
	n := *x
	return &n
}

func (x *Navigator) MoveToRoot() {
	x.curr = 0
	x.attr = -1
}

func (x *Navigator) MoveToParent() bool {
	if x.attr != -1 {
		x.attr = -1
		return true
	}
	if p := x.doc.nodes[x.curr].parent; p != NoNode {
		x.curr = p
		return true
	}
	return false
}

func (x *Navigator) MoveToNextAttribute() bool {
	if x.attr >= len(x.doc.nodes[x.curr].attrs)-1 {
		return false
	}
	x.attr++
	return true
}

func (x *Navigator) MoveToChild() bool {
	if x.attr != -1 {
		return false
	}
	children := x.doc.nodes[x.curr].children
	if len(children) == 0 {
		return false
	}
	x.curr = children[0]
	return true
}

func (x *Navigator) MoveToFirst() bool {
	if x.attr != -1 {
		return false
	}
	n := &x.doc.nodes[x.curr]
	if n.parent == NoNode || n.pos == 0 {
		return false
	}
	x.curr = x.doc.nodes[n.parent].children[0]
	return true
}

func (x *Navigator) MoveToNext() bool {
	if x.attr != -1 {
		return false
	}
	if s := x.doc.sibling(x.curr, 1); s != NoNode {
		x.curr = s
		return true
	}
	return false
}

func (x *Navigator) MoveToPrevious() bool {
	if x.attr != -1 {
		return false
	}
	if s := x.doc.sibling(x.curr, -1); s != NoNode {
		x.curr = s
		return true
	}
	return false
}

func (x *Navigator) MoveTo(other xpath.NodeNavigator) bool {
	node, ok := other.(*Navigator)
	if !ok || node.doc != x.doc {
		return false
	}
	x.curr = node.curr
	x.attr = node.attr
	return true
}

// ── Query helpers ─────────────────────────────────────────────────────────────

// Select returns the element and text nodes matched by expr, evaluated with
// id as the context node, in document order.
func Select(doc *Document, id NodeID, expr *xpath.Expr) []NodeID {
	var out []NodeID
	seen := make(map[NodeID]bool)
	iter := expr.Select(NewNavigator(doc, id))
	for iter.MoveNext() {
		nav := iter.Current().(*Navigator)
		if nav.attr != -1 || seen[nav.curr] {
			continue
		}
		seen[nav.curr] = true
		out = append(out, nav.curr)
	}
	return out
}

// EvalString evaluates expr and converts the result to a string.
func EvalString(doc *Document, id NodeID, expr *xpath.Expr) string {
	switch v := expr.Evaluate(NewNavigator(doc, id)).(type) {
	case string:
		return v
	case *xpath.NodeIterator:
		if v.MoveNext() {
			return v.Current().Value()
		}
	}
	return ""
}
