// Package stcode re-flows IEC 61131-3 Structured Text and Instruction List
// into one construct per line, indented by nesting depth.
//
// Project files store a whole program body in one element or attribute with
// its original whitespace. That whitespace is editor noise, so the text is
// tokenized and laid out again from scratch.
package stcode

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	perrors "github.com/damischa1/plc-textconv/internal/errors"
)

// Kind classifies a token.
type Kind uint8

const (
	Comment Kind = iota
	Pragma
	String
	Typed
	Address
	Number
	Ident
	Operator
	Other

	newline
	whitespace
)

// Token is one lexeme with the layout facts the formatters need.
type Token struct {
	Kind  Kind
	Text  string
	NL    bool // first token on its source line
	Space bool // preceded by whitespace or a line break
}

// Line is one output line before indentation.
type Line struct {
	Depth int
	Text  string
}

// Order matters: the first matching rule wins.
var codeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `\(\*(?s:.*?)\*\)|//[^\n]*`},
	{Name: "Pragma", Pattern: `\{[^}]*\}`},
	{Name: "String", Pattern: `'(?:\$.|[^'$])*'|"(?:\$.|[^"$])*"`},
	{Name: "Typed", Pattern: `[A-Za-z_][A-Za-z0-9_]*#(?:[0-9A-Za-z_.+\-#]|:[0-9])+`},
	{Name: "Address", Pattern: `%[A-Za-z]+[0-9]*(?:[.:/][0-9A-Za-z_]+)*`},
	{Name: "Number", Pattern: `[0-9][0-9_]*#[0-9A-Fa-f_]+|[0-9][0-9_]*(?:\.[0-9][0-9_]*)?(?:[eE][+-]?[0-9]+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Operator", Pattern: `:=|=>|<>|<=|>=|\*\*|\.\.|[-+*/=<>&:;,.()\[\]^#@!?|~]`},
	{Name: "Newline", Pattern: `\n`},
	{Name: "Whitespace", Pattern: `[^\S\n]+`},
	{Name: "Other", Pattern: `[^\s]`},
})

var tokenKinds = func() map[lexer.TokenType]Kind {
	names := map[string]Kind{
		"Comment":    Comment,
		"Pragma":     Pragma,
		"String":     String,
		"Typed":      Typed,
		"Address":    Address,
		"Number":     Number,
		"Ident":      Ident,
		"Operator":   Operator,
		"Newline":    newline,
		"Whitespace": whitespace,
		"Other":      Other,
	}
	out := make(map[lexer.TokenType]Kind, len(names))
	for name, tt := range codeLexer.Symbols() {
		if k, ok := names[name]; ok {
			out[tt] = k
		}
	}
	return out
}()

// Tokenize splits decoded source text into tokens. Whitespace and line
// breaks are folded into the NL and Space flags of the following token.
func Tokenize(src string) ([]Token, error) {
	lex, err := codeLexer.LexString("", src)
	if err != nil {
		return nil, perrors.NewParse("logic text", 0, err.Error())
	}
	raw, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, perrors.NewParse("logic text", 0, err.Error())
	}

	out := make([]Token, 0, len(raw))
	nl, sp := true, false
	for _, t := range raw {
		if t.EOF() {
			break
		}
		switch k := tokenKinds[t.Type]; k {
		case newline:
			nl = true
		case whitespace:
			sp = true
		default:
			out = append(out, Token{Kind: k, Text: t.Value, NL: nl, Space: sp || nl})
			nl, sp = false, false
		}
	}
	return out, nil
}

// DecodeText turns an embedded logic value into plain multi-line text.
//
// Line breaks become LF. A value with no real line break but with the
// two-character escapes \n, \r\n or \t was escaped twice by its schema and
// is decoded once more, except inside string literals.
func DecodeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	if strings.Contains(s, "\n") || !(strings.Contains(s, `\n`) || strings.Contains(s, `\t`)) {
		return s
	}
	return unescape(s)
}

// unescape decodes line break and tab escapes outside quoted literals. A
// quote inside a comment does not open a literal, and a line comment ends
// at the first decoded line break.
func unescape(s string) string {
	var sb strings.Builder
	var quote byte
	var block, line bool
	for i := 0; i < len(s); i++ {
		rest := s[i:]
		switch {
		case quote != 0:
			sb.WriteByte(s[i])
			if s[i] == '$' && i+1 < len(s) {
				i++
				sb.WriteByte(s[i])
			} else if s[i] == quote {
				quote = 0
			}
			continue
		case block && strings.HasPrefix(rest, "*)"):
			block = false
			sb.WriteString("*)")
			i++
			continue
		case block || line:
		case strings.HasPrefix(rest, "(*"):
			block = true
			sb.WriteString("(*")
			i++
			continue
		case strings.HasPrefix(rest, "//"):
			line = true
			sb.WriteString("//")
			i++
			continue
		case s[i] == '\'' || s[i] == '"':
			quote = s[i]
			sb.WriteByte(s[i])
			continue
		}
		if dec, n := escape(rest); n > 0 {
			sb.WriteString(dec)
			i += n - 1
			if dec == "\n" {
				line = false
			}
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func escape(s string) (string, int) {
	switch {
	case strings.HasPrefix(s, `\r\n`):
		return "\n", 4
	case strings.HasPrefix(s, `\n`):
		return "\n", 2
	case strings.HasPrefix(s, `\t`):
		return "\t", 2
	}
	return "", 0
}

func upper(t Token) string {
	if t.Kind != Ident {
		return ""
	}
	return strings.ToUpper(t.Text)
}
