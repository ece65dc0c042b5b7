// Package schema holds the closed tables that describe the supported
// project-file schemas: which subtrees are diagram layout, which carry
// program logic, and which elements are program units.
//
// Supported families:
//
//   - SoMachine Basic .smbp (RungEntity, InstructionLines, Grafcet nodes)
//   - PLCopen TC6 XML as exported by CoDeSys 3.5 and TwinCAT 3
//   - CoDeSys 3.5 .export (Single/MetaObject entries with text blobs)
//   - compact units storing a whole program in one attribute
package schema

import (
	"github.com/damischa1/plc-textconv/internal/tree"
)

// ── Section classification ────────────────────────────────────────────────────

// Class is the section filter's verdict for one element.
type Class uint8

const (
	// Unknown elements are kept (fail open).
	Unknown Class = iota
	// Logic elements hold textual program logic.
	Logic
	// Diagram elements hold graphical layout only and are removed.
	Diagram
)

func (c Class) String() string {
	switch c {
	case Logic:
		return "logic"
	case Diagram:
		return "diagram"
	default:
		return "unknown"
	}
}

// LanguageAttrs are the discriminating attributes, checked before the tag.
var LanguageAttrs = []string{"Language", "language", "BodyType"}

var languageClass = map[string]Class{
	"LD":  Diagram,
	"FBD": Diagram,
	"SFC": Diagram,
	"CFC": Diagram,
	"ST":  Logic,
	"IL":  Logic,
}

var tagClass = map[string]Class{
	// diagram layout
	"LadderElements":       Diagram,
	"LD":                   Diagram,
	"FBD":                  Diagram,
	"SFC":                  Diagram,
	"CFC":                  Diagram,
	"Ladder":               Diagram,
	"LadderDiagram":        Diagram,
	"FunctionBlockDiagram": Diagram,

	// textual logic
	"RungEntity":            Logic,
	"InstructionLines":      Logic,
	"InstructionLineEntity": Logic,
	"InstructionLine":       Logic,
	"ST":                    Logic,
	"IL":                    Logic,
	"pou":                   Logic,
	"action":                Logic,
	"transition":            Logic,
	"dataType":              Logic,
	"globalVars":            Logic,
	"Program":               Logic,
	"FunctionBlock":         Logic,
	"Function":              Logic,
	"Method":                Logic,
	"Action":                Logic,
	"Transition":            Logic,
}

// Classify decides the class of an element from its tag and attributes.
// A discriminating attribute wins over the tag.
func Classify(name string, attrs []tree.Attr) Class {
	for _, key := range LanguageAttrs {
		for _, a := range attrs {
			if a.Name != key {
				continue
			}
			if c, ok := languageClass[a.Value]; ok {
				return c
			}
		}
	}
	return tagClass[name]
}

// ── Program units ─────────────────────────────────────────────────────────────

// UnitKind identifies which rule turns an element into a program unit.
type UnitKind uint8

const (
	NotUnit UnitKind = iota
	// SoMachine Basic
	Rung
	GrafcetNode
	// PLCopen TC6
	POU
	POUMember
	DataType
	GlobalVars
	// CoDeSys 3.5 .export
	ExportObject
	// Attribute-encoded units
	Compact
)

var unitTags = map[string]UnitKind{
	"RungEntity":        Rung,
	"GrafcetNodeStep":   GrafcetNode,
	"GrafcetTransition": GrafcetNode,
	"GrafcetOrFork":     GrafcetNode,
	"GrafcetOrJunction": GrafcetNode,
	"pou":               POU,
	"action":            POUMember,
	"transition":        POUMember,
	"dataType":          DataType,
	"globalVars":        GlobalVars,
	"Single":            ExportObject,
	"Program":           Compact,
	"FunctionBlock":     Compact,
	"Function":          Compact,
	"Method":            Compact,
	"Action":            Compact,
	"Transition":        Compact,
}

// CompactNameAttrs name a compact unit, in order of preference.
var CompactNameAttrs = []string{"Name", "name"}

// CompactCodeAttrs hold a compact unit's logic, in order of preference.
var CompactCodeAttrs = []string{"Code", "Source", "Body", "Text", "ST", "IL"}

// Unit reports the unit rule matching element id, or NotUnit.
func Unit(doc *tree.Document, id tree.NodeID) UnitKind {
	if doc.Kind(id) != tree.ElementNode {
		return NotUnit
	}
	kind := unitTags[doc.Name(id)]
	switch kind {
	case ExportObject:
		obj := doc.NamedChild(id, "Object")
		if doc.NamedChild(id, "MetaObject") == tree.NoNode || obj == tree.NoNode {
			return NotUnit
		}
		if doc.NamedChild(obj, "Interface") == tree.NoNode && doc.NamedChild(obj, "Implementation") == tree.NoNode {
			return NotUnit
		}
	case POUMember:
		if ancestorNamed(doc, id, "pou") == tree.NoNode {
			return NotUnit
		}
	case GlobalVars:
		// a pou interface may declare globals of its own
		if ancestorNamed(doc, id, "pou") != tree.NoNode {
			return NotUnit
		}
	case Compact:
		if CompactName(doc, id) == "" {
			return NotUnit
		}
	}
	return kind
}

// CompactName returns the name attribute of a compact unit.
func CompactName(doc *tree.Document, id tree.NodeID) string {
	for _, key := range CompactNameAttrs {
		if v, ok := doc.Attr(id, key); ok && v != "" {
			return v
		}
	}
	return ""
}

func ancestorNamed(doc *tree.Document, id tree.NodeID, name string) tree.NodeID {
	for _, a := range doc.Ancestors(id) {
		if doc.Name(a) == name {
			return a
		}
	}
	return tree.NoNode
}

// EnclosingPOU returns the PLCopen pou holding id, or NoNode.
func EnclosingPOU(doc *tree.Document, id tree.NodeID) tree.NodeID {
	return ancestorNamed(doc, id, "pou")
}
