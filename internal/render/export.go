package render

import (
	"strings"

	"github.com/damischa1/plc-textconv/internal/stcode"
	"github.com/damischa1/plc-textconv/internal/tree"
)

// ── CoDeSys 3.5 .export ───────────────────────────────────────────────────────

// exportObject renders one EntryList entry. Its TypeGuid has been
// normalized away by now, so the kind of object is read from the
// declaration text instead.
func (r *renderer) exportObject(id tree.NodeID) (Section, error) {
	doc := r.doc
	meta := doc.FindChildByAttr(id, "Single", "Name", "MetaObject")
	obj := doc.FindChildByAttr(id, "Single", "Name", "Object")
	name := text(doc, doc.NamedChild(meta, "Name"))
	s := Section{Label: name, Node: id}

	decl, err := appendST(nil, name, textBlob(doc, doc.NamedChild(obj, "Interface")))
	if err != nil {
		return Section{}, err
	}
	s.Body = decl
	if impl := textBlob(doc, doc.NamedChild(obj, "Implementation")); isST(impl) {
		if s.Body, err = appendST(s.Body, name, impl); err != nil {
			return Section{}, err
		}
	}
	if end := pouEndKeyword(decl, ""); end != "" {
		s.Body = append(s.Body, stcode.Line{Text: end})
	}
	return s, nil
}

// textBlob returns the serialized text of a TextDocument child.
func textBlob(doc *tree.Document, id tree.NodeID) string {
	td := doc.NamedChild(id, "TextDocument")
	return text(doc, doc.NamedChild(td, "TextBlobForSerialisation"))
}

// isST reports whether an implementation blob is program text. Graphical
// implementations are serialized as XML and start with '<'.
func isST(impl string) bool {
	t := strings.TrimSpace(impl)
	if t == "" {
		return false
	}
	if strings.HasPrefix(t, "<") {
		return false
	}
	return true
}
