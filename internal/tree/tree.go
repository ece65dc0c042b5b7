// Package tree holds a parsed project file as an index-based arena.
//
// Nodes live in one slice and refer to each other by NodeID. Node 0 is the
// synthetic document node; its children are the top-level nodes. Parent
// links are only read for context lookups, never followed for mutation.
package tree

import (
	"strings"
)

// NodeID indexes a node in a Document arena.
type NodeID int32

// NoNode marks an absent node.
const NoNode NodeID = -1

// Kind distinguishes the node types stored in the arena.
type Kind uint8

const (
	DocumentNode Kind = iota
	ElementNode
	TextNode
)

// Attr is one attribute, stored in source order.
type Attr struct {
	Name  string
	Value string
}

type node struct {
	kind     Kind
	name     string
	text     string
	attrs    []Attr
	parent   NodeID
	children []NodeID
	pos      int32 // index in parent's children
}

// Document is a parsed project file.
type Document struct {
	nodes []node
}

// NewDocument returns a document holding only the document node.
func NewDocument() *Document {
	return &Document{nodes: []node{{kind: DocumentNode, parent: NoNode}}}
}

// ── Construction ──────────────────────────────────────────────────────────────

// AppendElement adds an element as the last child of parent.
func (d *Document) AppendElement(parent NodeID, name string, attrs []Attr) NodeID {
	return d.appendNode(parent, node{kind: ElementNode, name: name, attrs: attrs})
}

// AppendText adds a text run as the last child of parent. Adjacent runs are
// merged so CDATA sections and entity splits fold into one node.
func (d *Document) AppendText(parent NodeID, text string) NodeID {
	p := &d.nodes[parent]
	if n := len(p.children); n > 0 {
		last := p.children[n-1]
		if d.nodes[last].kind == TextNode {
			d.nodes[last].text += text
			return last
		}
	}
	return d.appendNode(parent, node{kind: TextNode, text: text})
}

func (d *Document) appendNode(parent NodeID, n node) NodeID {
	id := NodeID(len(d.nodes))
	n.parent = parent
	n.pos = int32(len(d.nodes[parent].children))
	d.nodes = append(d.nodes, n)
	d.nodes[parent].children = append(d.nodes[parent].children, id)
	return id
}

// ── Accessors ─────────────────────────────────────────────────────────────────

// Len reports the arena size, detached nodes included.
func (d *Document) Len() int { return len(d.nodes) }

// Root returns the document element, or NoNode for an empty document.
func (d *Document) Root() NodeID {
	for _, c := range d.nodes[0].children {
		if d.nodes[c].kind == ElementNode {
			return c
		}
	}
	return NoNode
}

func (d *Document) Kind(id NodeID) Kind   { return d.nodes[id].kind }
func (d *Document) Name(id NodeID) string { return d.nodes[id].name }

// IsElement reports whether id is an element named name.
func (d *Document) IsElement(id NodeID, name string) bool {
	return id != NoNode && d.nodes[id].kind == ElementNode && d.nodes[id].name == name
}

// Attrs returns the attributes of id in stored order. The slice is shared.
func (d *Document) Attrs(id NodeID) []Attr { return d.nodes[id].attrs }

// Attr returns the value of attribute name and whether it is present.
func (d *Document) Attr(id NodeID, name string) (string, bool) {
	if id == NoNode {
		return "", false
	}
	for _, a := range d.nodes[id].attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrValue returns the value of attribute name, or "".
func (d *Document) AttrValue(id NodeID, name string) string {
	v, _ := d.Attr(id, name)
	return v
}

// SetAttr sets attribute name, appending it when absent.
func (d *Document) SetAttr(id NodeID, name, value string) {
	n := &d.nodes[id]
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs[i].Value = value
			return
		}
	}
	n.attrs = append(n.attrs, Attr{Name: name, Value: value})
}

// SetAttrValueAt replaces the value of the i-th attribute.
func (d *Document) SetAttrValueAt(id NodeID, i int, value string) {
	d.nodes[id].attrs[i].Value = value
}

// Text returns the run of a text node, or the concatenated direct text
// children of an element.
func (d *Document) Text(id NodeID) string {
	n := &d.nodes[id]
	if n.kind == TextNode {
		return n.text
	}
	var sb strings.Builder
	for _, c := range n.children {
		if d.nodes[c].kind == TextNode {
			sb.WriteString(d.nodes[c].text)
		}
	}
	return sb.String()
}

// SetText replaces a text run. For an element the first direct text child
// receives s and the others are emptied; one is appended when none exists.
func (d *Document) SetText(id NodeID, s string) {
	n := &d.nodes[id]
	if n.kind == TextNode {
		n.text = s
		return
	}
	done := false
	for _, c := range n.children {
		if d.nodes[c].kind != TextNode {
			continue
		}
		if done {
			d.nodes[c].text = ""
			continue
		}
		d.nodes[c].text = s
		done = true
	}
	if !done {
		d.AppendText(id, s)
	}
}

// TextDeep recursively collects all text content within the node.
func (d *Document) TextDeep(id NodeID) string {
	var sb strings.Builder
	d.textDeep(id, &sb)
	return sb.String()
}

func (d *Document) textDeep(id NodeID, sb *strings.Builder) {
	n := &d.nodes[id]
	if n.kind == TextNode {
		sb.WriteString(n.text)
		return
	}
	for _, c := range n.children {
		d.textDeep(c, sb)
	}
}

// Parent returns the parent of id, NoNode for the document node or a
// detached subtree.
func (d *Document) Parent(id NodeID) NodeID { return d.nodes[id].parent }

// Children returns the child ids of id. The slice is shared.
func (d *Document) Children(id NodeID) []NodeID { return d.nodes[id].children }

// Elements returns the element children of id.
func (d *Document) Elements(id NodeID) []NodeID {
	var out []NodeID
	for _, c := range d.nodes[id].children {
		if d.nodes[c].kind == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first element child named name, or NoNode.
func (d *Document) Child(id NodeID, name string) NodeID {
	if id == NoNode {
		return NoNode
	}
	for _, c := range d.nodes[id].children {
		if d.IsElement(c, name) {
			return c
		}
	}
	return NoNode
}

// ChildrenNamed returns all element children named name.
func (d *Document) ChildrenNamed(id NodeID, name string) []NodeID {
	if id == NoNode {
		return nil
	}
	var out []NodeID
	for _, c := range d.nodes[id].children {
		if d.IsElement(c, name) {
			out = append(out, c)
		}
	}
	return out
}

// ChildText returns the trimmed text of the first child named name.
func (d *Document) ChildText(id NodeID, name string) string {
	c := d.Child(id, name)
	if c == NoNode {
		return ""
	}
	return strings.TrimSpace(d.TextDeep(c))
}

// Path follows a chain of child names from id.
func (d *Document) Path(id NodeID, names ...string) NodeID {
	for _, name := range names {
		id = d.Child(id, name)
		if id == NoNode {
			return NoNode
		}
	}
	return id
}

// NamedChild finds a child element whose Name attribute equals nameAttr.
func (d *Document) NamedChild(id NodeID, nameAttr string) NodeID {
	if id == NoNode {
		return NoNode
	}
	for _, c := range d.nodes[id].children {
		if d.nodes[c].kind == ElementNode && d.AttrValue(c, "Name") == nameAttr {
			return c
		}
	}
	return NoNode
}

// FindChildByAttr finds a child element with a specific attribute value.
func (d *Document) FindChildByAttr(id NodeID, tag, attrName, attrValue string) NodeID {
	if id == NoNode {
		return NoNode
	}
	for _, c := range d.nodes[id].children {
		if d.IsElement(c, tag) && d.AttrValue(c, attrName) == attrValue {
			return c
		}
	}
	return NoNode
}

// ── Traversal & mutation ──────────────────────────────────────────────────────

// Walk visits id and its descendants in pre-order. Returning false from fn
// skips the children of the node just visited.
func (d *Document) Walk(id NodeID, fn func(NodeID) bool) {
	if !fn(id) {
		return
	}
	for _, c := range d.nodes[id].children {
		d.Walk(c, fn)
	}
}

// Detach unlinks id from its parent. The subtree stays in the arena but is
// no longer reachable from the document node.
func (d *Document) Detach(id NodeID) {
	n := &d.nodes[id]
	if n.parent == NoNode {
		return
	}
	p := &d.nodes[n.parent]
	i := int(n.pos)
	p.children = append(p.children[:i], p.children[i+1:]...)
	for j := i; j < len(p.children); j++ {
		d.nodes[p.children[j]].pos = int32(j)
	}
	n.parent = NoNode
	n.pos = -1
}

// sibling returns the node offset positions away from id among its parent's
// children, or NoNode.
func (d *Document) sibling(id NodeID, offset int) NodeID {
	n := &d.nodes[id]
	if n.parent == NoNode {
		return NoNode
	}
	siblings := d.nodes[n.parent].children
	i := int(n.pos) + offset
	if i < 0 || i >= len(siblings) {
		return NoNode
	}
	return siblings[i]
}

// Ancestors returns the element ancestors of id, nearest first.
func (d *Document) Ancestors(id NodeID) []NodeID {
	var out []NodeID
	for p := d.nodes[id].parent; p != NoNode && p != 0; p = d.nodes[p].parent {
		out = append(out, p)
	}
	return out
}
