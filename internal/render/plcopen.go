package render

import (
	"fmt"
	"strings"

	"github.com/damischa1/plc-textconv/internal/schema"
	"github.com/damischa1/plc-textconv/internal/stcode"
	"github.com/damischa1/plc-textconv/internal/tree"
)

// ── PLCopen TC6 units ─────────────────────────────────────────────────────────

// pou renders declaration, textual body and closing keyword. A graphical
// body is gone after filtering, so only the declaration remains.
func (r *renderer) pou(id tree.NodeID) (Section, error) {
	doc := r.doc
	name := doc.AttrValue(id, "name")
	s := Section{Label: name, Node: id}

	decl := extractInterfaceAsPlainText(doc, id)
	if decl == "" {
		decl = reconstructDeclaration(doc, id)
	}
	declLines, err := appendST(nil, name, decl)
	if err != nil {
		return Section{}, err
	}
	body, err := r.body(name, doc.Child(id, "body"))
	if err != nil {
		return Section{}, err
	}
	s.Body = append(declLines, body...)
	if end := pouEndKeyword(declLines, doc.AttrValue(id, "pouType")); end != "" {
		s.Body = append(s.Body, stcode.Line{Text: end})
	}
	return s, nil
}

// pouMember renders an action or transition of a pou as "Pou.Member".
func (r *renderer) pouMember(id tree.NodeID) (Section, error) {
	doc := r.doc
	label := memberLabel(doc, id, doc.AttrValue(id, "name"))
	body, err := r.body(label, doc.Child(id, "body"))
	if err != nil {
		return Section{}, err
	}
	return Section{Label: label, Node: id, Body: body}, nil
}

func (r *renderer) dataType(id tree.NodeID) (Section, error) {
	name := r.doc.AttrValue(id, "name")
	lines, err := appendST(nil, name, reconstructDUT(r.doc, id))
	if err != nil {
		return Section{}, err
	}
	return Section{Label: name, Node: id, Body: lines}, nil
}

func (r *renderer) globalVars(id tree.NodeID) (Section, error) {
	name := r.doc.AttrValue(id, "name")
	if name == "" {
		name = "GlobalVars"
	}
	lines, err := appendST(nil, name, reconstructGVL(r.doc, id))
	if err != nil {
		return Section{}, err
	}
	return Section{Label: name, Node: id, Body: lines}, nil
}

// body re-flows the ST or IL of a PLCopen body element.
func (r *renderer) body(unit string, id tree.NodeID) ([]stcode.Line, error) {
	if id == tree.NoNode {
		return nil, nil
	}
	doc := r.doc
	if st := doc.Child(id, "ST"); st != tree.NoNode {
		return stcode.FormatST(unit, stcode.DecodeText(xhtmlText(doc, st)))
	}
	if il := doc.Child(id, "IL"); il != tree.NoNode {
		return stcode.FormatIL(unit, stcode.DecodeText(xhtmlText(doc, il)), r.symbols)
	}
	return nil, nil
}

// memberLabel prefixes name with the pou that holds id, if any.
func memberLabel(doc *tree.Document, id tree.NodeID, name string) string {
	if pou := schema.EnclosingPOU(doc, id); pou != tree.NoNode {
		return doc.AttrValue(pou, "name") + "." + name
	}
	return name
}

// xhtmlText returns the text of an element's xhtml child, or of the
// element itself when the exporter wrote plain text.
func xhtmlText(doc *tree.Document, id tree.NodeID) string {
	if x := doc.Child(id, "xhtml"); x != tree.NoNode {
		return doc.TextDeep(x)
	}
	return doc.TextDeep(id)
}

// ── Declarations ──────────────────────────────────────────────────────────────

// extractInterfaceAsPlainText gets the CoDeSys-specific InterfaceAsPlainText
// from addData sections, the most faithful source for declarations.
func extractInterfaceAsPlainText(doc *tree.Document, id tree.NodeID) string {
	for _, owner := range []tree.NodeID{id, doc.Child(id, "interface")} {
		for _, data := range doc.ChildrenNamed(doc.Child(owner, "addData"), "data") {
			if !strings.Contains(strings.ToLower(doc.AttrValue(data, "name")), "interfaceasplaintext") {
				continue
			}
			if x := doc.Path(data, "InterfaceAsPlainText", "xhtml"); x != tree.NoNode {
				return strings.TrimSpace(doc.TextDeep(x))
			}
		}
	}
	return ""
}

var varSections = []struct {
	tag string
	kw  string
}{
	{"inputVars", "VAR_INPUT"},
	{"outputVars", "VAR_OUTPUT"},
	{"inOutVars", "VAR_IN_OUT"},
	{"externalVars", "VAR_EXTERNAL"},
	{"globalVars", "VAR_GLOBAL"},
	{"localVars", "VAR"},
	{"tempVars", "VAR_TEMP"},
}

// reconstructDeclaration rebuilds the text declaration from structured XML vars.
func reconstructDeclaration(doc *tree.Document, pou tree.NodeID) string {
	pouName := doc.AttrValue(pou, "name")
	iface := doc.Child(pou, "interface")
	if iface == tree.NoNode {
		return ""
	}

	var sb strings.Builder
	switch doc.AttrValue(pou, "pouType") {
	case "function":
		ret := "BOOL"
		if rt := doc.Child(iface, "returnType"); rt != tree.NoNode {
			ret = extractTypeName(doc, rt)
		}
		fmt.Fprintf(&sb, "FUNCTION %s : %s\n", pouName, ret)
	case "functionBlock":
		fmt.Fprintf(&sb, "FUNCTION_BLOCK %s\n", pouName)
	case "program":
		fmt.Fprintf(&sb, "PROGRAM %s\n", pouName)
	}

	for _, sec := range varSections {
		for _, list := range doc.ChildrenNamed(iface, sec.tag) {
			vars := doc.ChildrenNamed(list, "variable")
			if len(vars) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "%s%s\n", sec.kw, varQualifiers(doc, list))
			for _, v := range vars {
				fmt.Fprintf(&sb, "    %s\n", variableDecl(doc, v))
			}
			sb.WriteString("END_VAR\n")
		}
	}
	return sb.String()
}

// varQualifiers renders the retain/constant flags of a PLCopen varList.
func varQualifiers(doc *tree.Document, list tree.NodeID) string {
	var q string
	for _, f := range []struct{ attr, kw string }{
		{"constant", "CONSTANT"},
		{"retain", "RETAIN"},
		{"nonretain", "NON_RETAIN"},
		{"persistent", "PERSISTENT"},
	} {
		if doc.AttrValue(list, f.attr) == "true" {
			q += " " + f.kw
		}
	}
	return q
}

// variableDecl renders one variable as "name [AT addr] : type [:= init];"
// with its documentation as a trailing comment.
func variableDecl(doc *tree.Document, v tree.NodeID) string {
	name := doc.AttrValue(v, "name")
	typeName := "BOOL"
	if t := doc.Child(v, "type"); t != tree.NoNode {
		typeName = extractTypeName(doc, t)
	}

	var decl string
	if addr := doc.AttrValue(v, "address"); addr != "" {
		decl = fmt.Sprintf("%s AT %s : %s", name, addr, typeName)
	} else {
		decl = fmt.Sprintf("%s : %s", name, typeName)
	}
	if iv := initialValue(doc, v); iv != "" {
		decl += " := " + iv
	}
	decl += ";"

	if x := doc.Path(v, "documentation", "xhtml"); x != tree.NoNode {
		if comment := strings.Join(strings.Fields(doc.TextDeep(x)), " "); comment != "" {
			decl += " // " + comment
		}
	}
	return decl
}

func initialValue(doc *tree.Document, v tree.NodeID) string {
	return doc.AttrValue(doc.Path(v, "initialValue", "simpleValue"), "value")
}

// extractTypeName gets a human-readable type name from a PLCopen type element.
func extractTypeName(doc *tree.Document, typeNode tree.NodeID) string {
	for _, c := range doc.Elements(typeNode) {
		tag := doc.Name(c)
		switch strings.ToUpper(tag) {
		case "BOOL", "BYTE", "WORD", "DWORD", "LWORD",
			"SINT", "INT", "DINT", "LINT",
			"USINT", "UINT", "UDINT", "ULINT",
			"REAL", "LREAL",
			"TIME", "DATE", "TOD", "DT",
			"TIME_OF_DAY", "DATE_AND_TIME",
			"LTIME", "WSTRING":
			return strings.ToUpper(tag)

		case "STRING":
			if length := doc.AttrValue(c, "length"); length != "" {
				return fmt.Sprintf("STRING(%s)", length)
			}
			return "STRING"

		case "DERIVED":
			return doc.AttrValue(c, "name")

		case "POINTER":
			if bt := doc.Child(c, "baseType"); bt != tree.NoNode {
				return "POINTER TO " + extractTypeName(doc, bt)
			}
			return "POINTER"

		case "ARRAY":
			dims := doc.ChildrenNamed(c, "dimension")
			baseType := doc.Child(c, "baseType")
			if len(dims) == 0 || baseType == tree.NoNode {
				return "ARRAY"
			}
			ranges := make([]string, len(dims))
			for i, d := range dims {
				ranges[i] = doc.AttrValue(d, "lower") + ".." + doc.AttrValue(d, "upper")
			}
			return fmt.Sprintf("ARRAY[%s] OF %s", strings.Join(ranges, ", "), extractTypeName(doc, baseType))

		case "STRUCT":
			return "STRUCT"

		case "ENUM":
			return "ENUM"
		}
	}
	return "BOOL"
}

// ── DUT & GVL ─────────────────────────────────────────────────────────────────

func reconstructDUT(doc *tree.Document, dt tree.NodeID) string {
	name := doc.AttrValue(dt, "name")
	if name == "" {
		return ""
	}
	if ipt := extractInterfaceAsPlainText(doc, dt); ipt != "" {
		return ipt
	}

	baseType := doc.Child(dt, "baseType")
	if baseType == tree.NoNode {
		return fmt.Sprintf("TYPE %s :\n    // Unknown type\nEND_TYPE\n", name)
	}

	var sb strings.Builder

	if structNode := doc.Child(baseType, "struct"); structNode != tree.NoNode {
		fmt.Fprintf(&sb, "TYPE %s :\nSTRUCT\n", name)
		for _, v := range doc.ChildrenNamed(structNode, "variable") {
			fmt.Fprintf(&sb, "    %s\n", variableDecl(doc, v))
		}
		sb.WriteString("END_STRUCT\nEND_TYPE\n")
		return sb.String()
	}

	if enumNode := doc.Child(baseType, "enum"); enumNode != tree.NoNode {
		fmt.Fprintf(&sb, "TYPE %s :\n(\n", name)
		vals := doc.ChildrenNamed(doc.Child(enumNode, "values"), "value")
		for i, v := range vals {
			line := "    " + doc.AttrValue(v, "name")
			ev := doc.AttrValue(v, "value")
			if ev == "" {
				ev = doc.AttrValue(doc.Child(v, "simpleValue"), "value")
			}
			if ev != "" {
				line += " := " + ev
			}
			if i < len(vals)-1 {
				line += ","
			}
			fmt.Fprintf(&sb, "%s\n", line)
		}
		sb.WriteString(");\nEND_TYPE\n")
		return sb.String()
	}

	if len(doc.Elements(baseType)) > 0 {
		fmt.Fprintf(&sb, "TYPE %s : %s;\nEND_TYPE\n", name, extractTypeName(doc, baseType))
		return sb.String()
	}
	return fmt.Sprintf("TYPE %s :\n    // Unsupported base type structure\nEND_TYPE\n", name)
}

func reconstructGVL(doc *tree.Document, gvl tree.NodeID) string {
	if ipt := extractInterfaceAsPlainText(doc, gvl); ipt != "" {
		return ipt
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "VAR_GLOBAL%s\n", varQualifiers(doc, gvl))
	for _, v := range doc.ChildrenNamed(gvl, "variable") {
		fmt.Fprintf(&sb, "    %s\n", variableDecl(doc, v))
	}
	sb.WriteString("END_VAR\n")
	return sb.String()
}
