package tree

import (
	"bufio"
	"io"
	"strings"
)

// WriteXML serializes the attached part of doc as indented XML.
//
// Whitespace-only text between elements is dropped and replaced by the
// writer's own indentation. Text in mixed content is trimmed and written on
// its own line; text-only elements keep their text verbatim.
func WriteXML(w io.Writer, doc *Document, indent string) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	for _, c := range doc.nodes[0].children {
		if doc.nodes[c].kind == ElementNode {
			writeElement(bw, doc, c, 0, indent)
		}
	}
	return bw.Flush()
}

func writeElement(w *bufio.Writer, doc *Document, id NodeID, depth int, indent string) {
	n := &doc.nodes[id]

	writeIndent(w, depth, indent)
	w.WriteString("<")
	w.WriteString(n.name)
	for _, a := range n.attrs {
		w.WriteString(" ")
		w.WriteString(a.Name)
		w.WriteString("=\"")
		w.WriteString(xmlEscapeAttr(a.Value))
		w.WriteString("\"")
	}

	hasElementChildren := false
	hasText := false
	for _, c := range n.children {
		switch doc.nodes[c].kind {
		case ElementNode:
			hasElementChildren = true
		case TextNode:
			if doc.nodes[c].text != "" {
				hasText = true
			}
		}
	}

	if !hasElementChildren && !hasText {
		w.WriteString("/>\n")
		return
	}
	w.WriteString(">")

	if !hasElementChildren {
		w.WriteString(xmlEscape(doc.Text(id)))
		w.WriteString("</")
		w.WriteString(n.name)
		w.WriteString(">\n")
		return
	}

	w.WriteString("\n")
	for _, c := range n.children {
		child := &doc.nodes[c]
		if child.kind == ElementNode {
			writeElement(w, doc, c, depth+1, indent)
			continue
		}
		text := strings.TrimSpace(child.text)
		if text == "" {
			continue
		}
		writeIndent(w, depth+1, indent)
		w.WriteString(xmlEscape(text))
		w.WriteString("\n")
	}
	writeIndent(w, depth, indent)
	w.WriteString("</")
	w.WriteString(n.name)
	w.WriteString(">\n")
}

func writeIndent(w *bufio.Writer, depth int, indent string) {
	for i := 0; i < depth; i++ {
		w.WriteString(indent)
	}
}

func xmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// xmlEscapeAttr also encodes line breaks and tabs so a reader sees the same
// attribute value after normalization.
func xmlEscapeAttr(s string) string {
	s = xmlEscape(s)
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "\r", "&#13;")
	s = strings.ReplaceAll(s, "\n", "&#10;")
	s = strings.ReplaceAll(s, "\t", "&#9;")
	return s
}
