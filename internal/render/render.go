// Package render turns the program units of a filtered project tree into
// sections of re-flowed logic text, one section per unit in document order.
package render

import (
	"strings"

	perrors "github.com/damischa1/plc-textconv/internal/errors"
	"github.com/damischa1/plc-textconv/internal/schema"
	"github.com/damischa1/plc-textconv/internal/stcode"
	"github.com/damischa1/plc-textconv/internal/tree"
)

// Section is the rendered form of one program unit.
type Section struct {
	Label string
	Node  tree.NodeID // unit element the section was rendered from
	Body  []stcode.Line
}

// Options tune rendering.
type Options struct {
	// Symbols appends the symbol of an IL operand when the project's I/O
	// table names its address.
	Symbols bool
}

type renderer struct {
	doc     *tree.Document
	symbols map[string]string
}

// Render walks doc in pre-order and renders every element matched by a unit
// rule. Nested units get sections of their own after their parent's.
func Render(doc *tree.Document, opts Options) ([]Section, error) {
	r := &renderer{doc: doc}
	if opts.Symbols {
		r.symbols = SymbolTable(doc)
	}

	var sections []Section
	var err error
	doc.Walk(0, func(id tree.NodeID) bool {
		if err != nil {
			return false
		}
		kind := schema.Unit(doc, id)
		if kind == schema.NotUnit {
			return true
		}
		var s Section
		if s, err = r.unit(kind, id); err == nil {
			sections = append(sections, s)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return sections, nil
}

func (r *renderer) unit(kind schema.UnitKind, id tree.NodeID) (Section, error) {
	switch kind {
	case schema.Rung:
		return r.rung(id)
	case schema.GrafcetNode:
		return r.grafcet(id), nil
	case schema.POU:
		return r.pou(id)
	case schema.POUMember:
		return r.pouMember(id)
	case schema.DataType:
		return r.dataType(id)
	case schema.GlobalVars:
		return r.globalVars(id)
	case schema.ExportObject:
		return r.exportObject(id)
	case schema.Compact:
		return r.compact(id)
	}
	return Section{}, perrors.NewInvariant(r.doc.Name(id), "no renderer for unit kind %d", kind)
}

// ── Compact units ─────────────────────────────────────────────────────────────

func (r *renderer) compact(id tree.NodeID) (Section, error) {
	doc := r.doc
	name := memberLabel(doc, id, schema.CompactName(doc, id))
	s := Section{Label: name, Node: id}

	for _, key := range schema.CompactCodeAttrs {
		code, ok := doc.Attr(id, key)
		if !ok {
			continue
		}
		lang := language(doc, id)
		if lang == "" && key == "IL" {
			lang = "IL"
		}
		var err error
		if lang == "IL" {
			s.Body, err = stcode.FormatIL(name, stcode.DecodeText(code), r.symbols)
		} else {
			s.Body, err = stcode.FormatST(name, stcode.DecodeText(code))
		}
		if err != nil {
			return Section{}, err
		}
		return s, nil
	}
	return r.compactElements(s)
}

// compactElements renders a unit that keeps its logic in PLCopen child
// elements instead of attributes, as CoDeSys does for methods and
// properties stored under a pou's addData.
func (r *renderer) compactElements(s Section) (Section, error) {
	doc := r.doc
	decl := extractInterfaceAsPlainText(doc, s.Node)
	if decl == "" {
		decl = reconstructDeclaration(doc, s.Node)
	}
	declLines, err := appendST(nil, s.Label, decl)
	if err != nil {
		return Section{}, err
	}
	body, err := r.body(s.Label, doc.Child(s.Node, "body"))
	if err != nil {
		return Section{}, err
	}
	s.Body = append(declLines, body...)
	if end := pouEndKeyword(declLines, ""); end != "" {
		s.Body = append(s.Body, stcode.Line{Text: end})
	}
	return s, nil
}

// language returns the upper-cased value of the first language attribute.
func language(doc *tree.Document, id tree.NodeID) string {
	for _, key := range schema.LanguageAttrs {
		if v, ok := doc.Attr(id, key); ok {
			return strings.ToUpper(strings.TrimSpace(v))
		}
	}
	return ""
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// namePath collects the Name children of the ancestors of id, outermost
// first. The document element's name is the project name and is skipped.
func (r *renderer) namePath(id tree.NodeID) []string {
	doc := r.doc
	root := doc.Root()
	anc := doc.Ancestors(id)

	var names []string
	for i := len(anc) - 1; i >= 0; i-- {
		if anc[i] == root {
			continue
		}
		if n := doc.ChildText(anc[i], "Name"); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// text returns the trimmed text of id, or "" for NoNode.
func text(doc *tree.Document, id tree.NodeID) string {
	if id == tree.NoNode {
		return ""
	}
	return strings.TrimSpace(doc.TextDeep(id))
}

// appendST re-flows src as Structured Text onto lines.
func appendST(lines []stcode.Line, unit, src string) ([]stcode.Line, error) {
	out, err := stcode.FormatST(unit, stcode.DecodeText(src))
	if err != nil {
		return nil, err
	}
	return append(lines, out...), nil
}

// pouEndKeyword finds the POU header among top-level declaration lines and
// returns its closing keyword. pouType is the PLCopen fallback when the
// declaration has no header.
func pouEndKeyword(decl []stcode.Line, pouType string) string {
	for _, l := range decl {
		if l.Depth != 0 {
			continue
		}
		word, _, _ := strings.Cut(l.Text, " ")
		switch u := strings.ToUpper(word); u {
		case "PROGRAM", "FUNCTION_BLOCK", "FUNCTION", "METHOD", "PROPERTY", "INTERFACE":
			return "END_" + u
		}
	}
	switch pouType {
	case "function":
		return "END_FUNCTION"
	case "functionBlock":
		return "END_FUNCTION_BLOCK"
	case "program":
		return "END_PROGRAM"
	}
	return ""
}
