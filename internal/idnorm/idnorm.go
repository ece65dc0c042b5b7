// Package idnorm replaces volatile identifiers with file-scoped labels.
//
// Project files cross-reference their objects by GUID and the editor
// regenerates those on copy, import and sometimes plain save. Each distinct
// identifier is replaced by a counter label assigned in order of first
// appearance, so two files that differ only in regenerated identifiers
// normalize to the same bytes.
package idnorm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/damischa1/plc-textconv/internal/tree"
)

// tokenRe matches the 8-4-4-4-12 hexadecimal shape. Boundaries are checked
// separately because RE2 has no lookaround.
var tokenRe = regexp.MustCompile(`[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}`)

// Label formats the n-th (1-based) assigned label.
func Label(n int) string {
	return fmt.Sprintf("==%04d==", n)
}

// Stats summarizes one normalization pass.
type Stats struct {
	Distinct int // identifiers that received a label
	Replaced int // occurrences rewritten
}

// Normalizer owns the identifier map of one document.
type Normalizer struct {
	labels map[uuid.UUID]string
	stats  Stats
}

// New returns an empty Normalizer.
func New() *Normalizer {
	return &Normalizer{labels: make(map[uuid.UUID]string)}
}

// Normalize rewrites every identifier token in doc in place. Subtrees for
// which skip returns true are neither visited nor renumbered; skip may be
// nil.
func Normalize(doc *tree.Document, skip func(*tree.Document, tree.NodeID) bool) Stats {
	n := New()
	n.Document(doc, skip)
	return n.Stats()
}

// Stats reports the counters accumulated so far.
func (n *Normalizer) Stats() Stats { return n.stats }

// Document walks doc in pre-order: attribute values in stored order, then
// children.
func (n *Normalizer) Document(doc *tree.Document, skip func(*tree.Document, tree.NodeID) bool) {
	doc.Walk(0, func(id tree.NodeID) bool {
		switch doc.Kind(id) {
		case tree.TextNode:
			if s, ok := n.Replace(doc.Text(id)); ok {
				doc.SetText(id, s)
			}
			return false
		case tree.ElementNode:
			if skip != nil && skip(doc, id) {
				return false
			}
			for i, a := range doc.Attrs(id) {
				if s, ok := n.Replace(a.Value); ok {
					doc.SetAttrValueAt(id, i, s)
				}
			}
		}
		return true
	})
}

// Replace rewrites the identifier tokens of s, assigning labels to new ones.
// The boolean reports whether anything changed.
func (n *Normalizer) Replace(s string) (string, bool) {
	if len(s) < 36 {
		return s, false
	}
	locs := tokenRe.FindAllStringIndex(s, -1)
	if locs == nil {
		return s, false
	}

	var sb strings.Builder
	last := 0
	changed := false
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if !atBoundary(s, start, end) {
			continue
		}
		id, err := uuid.Parse(s[start:end])
		if err != nil {
			continue
		}
		sb.WriteString(s[last:start])
		sb.WriteString(n.label(id))
		last = end
		changed = true
		n.stats.Replaced++
	}
	if !changed {
		return s, false
	}
	sb.WriteString(s[last:])
	return sb.String(), true
}

func (n *Normalizer) label(id uuid.UUID) string {
	if l, ok := n.labels[id]; ok {
		return l
	}
	n.stats.Distinct++
	l := Label(n.stats.Distinct)
	n.labels[id] = l
	return l
}

// atBoundary reports whether s[start:end] stands alone as a token.
func atBoundary(s string, start, end int) bool {
	if start > 0 && isTokenByte(s[start-1]) {
		return false
	}
	if end < len(s) && isTokenByte(s[end]) {
		return false
	}
	return true
}

func isTokenByte(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	}
	return c == '_' || c == '-'
}
