// Package annotate interleaves context marker lines with rendered sections
// so a diff tool can name the program unit each hunk belongs to.
//
// Git picks the markers up through its hunk-header configuration:
//
//	[diff "plc"]
//		textconv = plc-textconv
//		xfuncname = "^::: (.*)$"
package annotate

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/damischa1/plc-textconv/internal/render"
	"github.com/damischa1/plc-textconv/internal/tree"
)

const (
	// MarkerPrefix starts every marker line. Body lines are always
	// indented, so none can start with it.
	MarkerPrefix = "::: "
	// HunkHeaderPattern extracts the label from a marker line.
	HunkHeaderPattern = "^::: (.*)$"
	// CtxAttr is the attribute Tree adds to unit elements.
	CtxAttr = "ctx"

	indentUnit = "    "
	unnamed    = "(unnamed)"
)

// Line is one line of filter output.
type Line struct {
	Text    string
	Context string // label of the most recent marker
	Marker  bool
}

// Label makes a unit name safe for a marker line: whitespace runs,
// line breaks included, become one space.
func Label(name string) string {
	if l := strings.Join(strings.Fields(name), " "); l != "" {
		return l
	}
	return unnamed
}

// Lines emits a marker line per section followed by its body, indented one
// level more than its nesting depth. A body line spanning several physical
// lines, such as a string literal holding a line break, is indented on each.
func Lines(sections []render.Section) []Line {
	var out []Line
	for _, s := range sections {
		label := Label(s.Label)
		out = append(out, Line{Text: MarkerPrefix + label, Context: label, Marker: true})
		for _, l := range s.Body {
			indent := strings.Repeat(indentUnit, l.Depth+1)
			for _, piece := range strings.Split(l.Text, "\n") {
				text := ""
				if piece != "" {
					text = indent + piece
				}
				out = append(out, Line{Text: text, Context: label})
			}
		}
	}
	return out
}

// Tree records each section's label on its unit element, for output modes
// that write the document itself.
func Tree(doc *tree.Document, sections []render.Section) {
	for _, s := range sections {
		doc.SetAttr(s.Node, CtxAttr, Label(s.Label))
	}
}

// Write writes lines, each terminated by a line feed.
func Write(w io.Writer, lines []Line) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		bw.WriteString(l.Text)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// GitConfig returns the git configuration that registers command as the
// textconv filter of diff driver name.
func GitConfig(name, command string) string {
	return fmt.Sprintf("[diff %q]\n\ttextconv = %s\n\txfuncname = %q\n", name, command, HunkHeaderPattern)
}
