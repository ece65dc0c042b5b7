package render

import (
	"fmt"
	"strings"

	"github.com/antchfx/xpath"

	"github.com/damischa1/plc-textconv/internal/stcode"
	"github.com/damischa1/plc-textconv/internal/tree"
)

// ── SoMachine Basic ───────────────────────────────────────────────────────────

var (
	symbolExpr = xpath.MustCompile(`//*[Address and Symbol]`)

	grafcetIDExpr   = xpath.MustCompile(`normalize-space(Id)`)
	grafcetFromExpr = xpath.MustCompile(`.//From`)
	grafcetToExpr   = xpath.MustCompile(`.//To`)
)

// SymbolTable maps I/O addresses to symbols, read from every element that
// has both an Address and a Symbol child. A later entry for the same
// address wins.
func SymbolTable(doc *tree.Document) map[string]string {
	table := make(map[string]string)
	for _, id := range tree.Select(doc, 0, symbolExpr) {
		addr := doc.ChildText(id, "Address")
		sym := doc.ChildText(id, "Symbol")
		if addr != "" && sym != "" {
			table[addr] = sym
		}
	}
	return table
}

// rung renders a RungEntity: its main comment, its label and its
// instruction list, one instruction per line.
func (r *renderer) rung(id tree.NodeID) (Section, error) {
	doc := r.doc
	names := r.namePath(id)
	if n := doc.ChildText(id, "Name"); n != "" {
		names = append(names, n)
	}
	s := Section{Label: strings.Join(names, " > "), Node: id}

	if c := doc.ChildText(id, "MainComment"); c != "" {
		s.Body = append(s.Body, stcode.Line{Text: blockComment(c)})
	}
	if l := doc.ChildText(id, "Label"); l != "" {
		s.Body = append(s.Body, stcode.Line{Text: l + ":"})
	}

	var src strings.Builder
	for _, list := range doc.ChildrenNamed(id, "InstructionLines") {
		for _, entity := range doc.ChildrenNamed(list, "InstructionLineEntity") {
			src.WriteString(doc.ChildText(entity, "InstructionLine"))
			if c := doc.ChildText(entity, "Comment"); c != "" {
				src.WriteString(" " + blockComment(c))
			}
			src.WriteByte('\n')
		}
	}
	lines, err := stcode.FormatIL(s.Label, stcode.DecodeText(src.String()), r.symbols)
	if err != nil {
		return Section{}, err
	}
	s.Body = append(s.Body, lines...)
	return s, nil
}

// grafcet renders a chart node as its id and links.
func (r *renderer) grafcet(id tree.NodeID) Section {
	doc := r.doc
	names := append(r.namePath(id), doc.Name(id))
	nodeID := tree.EvalString(doc, id, grafcetIDExpr)
	if nodeID == "" {
		nodeID = "-"
	}
	line := fmt.Sprintf("%s from %s to %s", nodeID,
		r.links(id, grafcetFromExpr), r.links(id, grafcetToExpr))
	return Section{
		Label: strings.Join(names, " > "),
		Node:  id,
		Body:  []stcode.Line{{Text: line}},
	}
}

func (r *renderer) links(id tree.NodeID, expr *xpath.Expr) string {
	var ids []string
	for _, n := range tree.Select(r.doc, id, expr) {
		if t := text(r.doc, n); t != "" {
			ids = append(ids, t)
		}
	}
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}

// blockComment folds free text into a one-line (* ... *) comment.
func blockComment(s string) string {
	s = strings.ReplaceAll(s, "*)", "* )")
	return "(* " + strings.Join(strings.Fields(s), " ") + " *)"
}
