package stcode

import (
	"fmt"
	"strings"

	perrors "github.com/damischa1/plc-textconv/internal/errors"
)

// symbolColumn is the width an instruction is padded to before its symbol.
const symbolColumn = 13

// FormatIL lays out Instruction List one instruction per line with
// whitespace runs collapsed. Depth follows open parentheses and BLK blocks.
// Operands found in symbols get their symbol appended as "[SYM]".
func FormatIL(unit, src string, symbols map[string]string) ([]Line, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}

	var lines []Line
	depth := 0
	for start := 0; start < len(toks); {
		end := start + 1
		for end < len(toks) && !toks[end].NL {
			end++
		}
		line := toks[start:end]
		start = end

		if len(line) == 1 && line[0].Kind == Comment && strings.Contains(line[0].Text, "\n") {
			for _, l := range commentLines(line[0].Text) {
				lines = append(lines, Line{Depth: depth, Text: l})
			}
			continue
		}

		opens, closes := 0, 0
		for _, t := range line {
			if t.Kind != Operator {
				continue
			}
			switch t.Text {
			case "(":
				opens++
			case ")":
				closes++
			}
		}

		lineDepth := depth
		switch upper(line[0]) {
		case "BLK":
			depth++
		case "OUT_BLK":
			lineDepth = depth - 1
		case "END_BLK":
			depth--
			lineDepth = depth
		}
		if net := opens - closes; net < 0 {
			depth += net
			lineDepth += net
		} else {
			depth += net
		}
		if depth < 0 || lineDepth < 0 {
			return nil, perrors.NewInvariant(unit, "unbalanced nesting in %q", joinIL(line, nil))
		}
		lines = append(lines, Line{Depth: lineDepth, Text: joinIL(line, symbols)})
	}
	if depth != 0 {
		return nil, perrors.NewInvariant(unit, "%d nesting level(s) never closed", depth)
	}
	return lines, nil
}

// joinIL keeps the source's token gluing but collapses every whitespace run
// to a single space.
func joinIL(toks []Token, symbols map[string]string) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && t.Space {
			sb.WriteByte(' ')
		}
		text := t.Text
		if t.Kind == Comment {
			text = strings.Join(strings.Fields(text), " ")
		}
		sb.WriteString(text)
		if sym, ok := symbols[t.Text]; ok && t.Kind == Address {
			s := sb.String()
			sb.Reset()
			fmt.Fprintf(&sb, "%-*s [%s]", symbolColumn, s, sym)
		}
	}
	return sb.String()
}
