// Package filter removes diagram layout subtrees from a parsed project.
//
// Diagram data (coordinates, shapes, wire routing) changes on every save
// even when behaviour does not, so it is dropped outright. Subtrees that are
// not recognized are kept.
package filter

import (
	"github.com/damischa1/plc-textconv/internal/schema"
	"github.com/damischa1/plc-textconv/internal/tree"
)

// Stats counts the verdicts of one Apply call.
type Stats struct {
	Diagram int // subtrees removed
	Logic   int // logic elements kept
	Unknown int // unrecognized elements kept
}

// Classify returns the verdict for element id.
func Classify(doc *tree.Document, id tree.NodeID) schema.Class {
	if doc.Kind(id) != tree.ElementNode {
		return schema.Unknown
	}
	return schema.Classify(doc.Name(id), doc.Attrs(id))
}

// IsDiagram reports whether id heads a subtree Apply will remove.
func IsDiagram(doc *tree.Document, id tree.NodeID) bool {
	return Classify(doc, id) == schema.Diagram
}

// Apply detaches every diagram subtree of doc. Kept subtrees are searched
// recursively, so a diagram nested in logic is removed as well.
func Apply(doc *tree.Document) Stats {
	var stats Stats
	var drop []tree.NodeID
	doc.Walk(0, func(id tree.NodeID) bool {
		if doc.Kind(id) != tree.ElementNode {
			return true
		}
		switch Classify(doc, id) {
		case schema.Diagram:
			drop = append(drop, id)
			stats.Diagram++
			return false
		case schema.Logic:
			stats.Logic++
		default:
			stats.Unknown++
		}
		return true
	})
	for _, id := range drop {
		doc.Detach(id)
	}
	return stats
}
