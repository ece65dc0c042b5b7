package stcode

import (
	"strings"
)

// wordOps are keywords after which an opening parenthesis or a sign keeps
// its expression meaning: "IF (a)" and "NOT -x", not "f(a)".
var wordOps = map[string]bool{
	"AND": true, "OR": true, "XOR": true, "NOT": true, "MOD": true,
	"AND_THEN": true, "OR_ELSE": true,
	"IF": true, "ELSIF": true, "WHILE": true, "UNTIL": true, "CASE": true,
	"OF": true, "THEN": true, "DO": true, "TO": true, "BY": true,
	"RETURN": true, "ELSE": true, "AT": true,
}

// join lays out the tokens of one line with canonical spacing. On a CASE
// label line the closing colon hugs the label.
func join(toks []Token, label bool) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && needSpace(toks, i, label) {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

func needSpace(toks []Token, i int, label bool) bool {
	prev, cur := toks[i-1], toks[i]
	p, c := prev.Text, cur.Text

	if cur.Kind == Comment || prev.Kind == Comment {
		return true
	}
	if cur.Kind == Operator {
		switch c {
		case ")", "]", ",", ";", ".", "..", "^":
			return false
		case ":":
			if label {
				return false
			}
		case "(", "[":
			if callable(prev) {
				return false
			}
		}
	}
	if prev.Kind == Operator {
		switch p {
		case "(", "[", ".", "..", "#":
			return false
		case "-", "+":
			if isUnary(toks, i-1) {
				return false
			}
		}
	}
	if c == "#" {
		return false
	}
	return true
}

// callable reports whether an opening bracket after t is a call or index.
func callable(t Token) bool {
	switch t.Kind {
	case Ident:
		return !wordOps[strings.ToUpper(t.Text)]
	case Operator:
		return t.Text == ")" || t.Text == "]" || t.Text == "^"
	case Address, Typed:
		return true
	}
	return false
}

// isUnary reports whether the sign at toks[i] is a prefix operator.
func isUnary(toks []Token, i int) bool {
	if i == 0 {
		return true
	}
	prev := toks[i-1]
	switch prev.Kind {
	case Operator:
		return prev.Text != ")" && prev.Text != "]" && prev.Text != "^"
	case Ident:
		return wordOps[strings.ToUpper(prev.Text)]
	case Comment, Pragma:
		return isUnary(toks, i-1)
	}
	return false
}

// commentLines splits a comment into trimmed physical lines.
func commentLines(text string) []string {
	parts := strings.Split(text, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
