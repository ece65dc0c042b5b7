package stcode

import (
	"strings"

	perrors "github.com/damischa1/plc-textconv/internal/errors"
)

// ── Keyword tables ────────────────────────────────────────────────────────────

// pouKinds open a program organisation unit. Their bodies are not indented
// and they may be left open: declaration and implementation are often
// stored apart.
var pouKinds = map[string]bool{
	"PROGRAM": true, "FUNCTION_BLOCK": true, "FUNCTION": true,
	"METHOD": true, "PROPERTY": true, "ACTION": true, "INTERFACE": true,
	"CONFIGURATION": true, "RESOURCE": true, "NAMESPACE": true,
}

var varKinds = map[string]bool{
	"VAR": true, "VAR_INPUT": true, "VAR_OUTPUT": true, "VAR_IN_OUT": true,
	"VAR_GLOBAL": true, "VAR_EXTERNAL": true, "VAR_TEMP": true,
	"VAR_STAT": true, "VAR_CONFIG": true, "VAR_ACCESS": true, "VAR_INST": true,
}

var varQualifiers = map[string]bool{
	"RETAIN": true, "NON_RETAIN": true, "PERSISTENT": true, "CONSTANT": true,
}

// blockKinds are the names an END_ keyword may close.
var blockKinds = map[string]bool{
	"IF": true, "CASE": true, "FOR": true, "WHILE": true, "REPEAT": true,
	"VAR": true, "STRUCT": true, "UNION": true, "TYPE": true,
}

// headerEnd maps a block header to the keyword that ends it.
var headerEnd = map[string]string{
	"IF":    "THEN",
	"ELSIF": "THEN",
	"FOR":   "DO",
	"WHILE": "DO",
	"CASE":  "OF",
}

type block struct {
	kind   string
	header int // depth of the opening line
	body   int // depth of the lines inside
	pou    bool
}

// ── Formatter ─────────────────────────────────────────────────────────────────

type stFormatter struct {
	unit  string
	toks  []Token
	i     int
	lines []Line
	stack []block

	cur      []Token
	curDepth int
	depthSet bool
	label    bool

	pending      string // header waiting for THEN/DO/OF
	pendingDepth int
	parens       int
	untilNL      bool   // header line ends at the next line break
	varOpen      *block // VAR block opened once its qualifiers are read
}

// FormatST lays out Structured Text one statement per line. unit names the
// program unit in errors.
func FormatST(unit, src string) ([]Line, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	f := &stFormatter{unit: unit, toks: toks}
	for f.i = 0; f.i < len(f.toks); f.i++ {
		if err := f.token(f.toks[f.i]); err != nil {
			return nil, err
		}
	}
	if f.varOpen != nil {
		f.flush()
		f.stack = append(f.stack, *f.varOpen)
		f.varOpen = nil
	}
	f.flush()
	for n := len(f.stack) - 1; n >= 0; n-- {
		if !f.stack[n].pou {
			return nil, perrors.NewInvariant(unit, "%s is never closed", f.stack[n].kind)
		}
	}
	return f.lines, nil
}

func (f *stFormatter) depth() int {
	if n := len(f.stack); n > 0 {
		return f.stack[n-1].body
	}
	return 0
}

func (f *stFormatter) top() (block, bool) {
	if n := len(f.stack); n > 0 {
		return f.stack[n-1], true
	}
	return block{}, false
}

// start begins a line at an explicit depth.
func (f *stFormatter) start(depth int) {
	f.curDepth = depth
	f.depthSet = true
}

func (f *stFormatter) add(t Token) {
	if len(f.cur) == 0 && !f.depthSet {
		f.curDepth = f.depth()
	}
	f.cur = append(f.cur, t)
}

func (f *stFormatter) flush() {
	if len(f.cur) > 0 {
		f.lines = append(f.lines, Line{Depth: f.curDepth, Text: join(f.cur, f.label)})
	}
	f.cur = f.cur[:0]
	f.depthSet = false
	f.label = false
	f.untilNL = false
}

func (f *stFormatter) push(b block) {
	f.stack = append(f.stack, b)
}

// pop closes the innermost block of the given kind. Open POU blocks in
// between are closed silently when kind is itself a POU.
func (f *stFormatter) pop(kind string) (block, error) {
	for n := len(f.stack) - 1; n >= 0; n-- {
		b := f.stack[n]
		if b.kind == kind {
			f.stack = f.stack[:n]
			return b, nil
		}
		if !(b.pou && pouKinds[kind]) {
			return block{}, perrors.NewInvariant(f.unit, "END_%s closes open %s", kind, b.kind)
		}
	}
	return block{}, perrors.NewInvariant(f.unit, "END_%s without %s", kind, kind)
}

func (f *stFormatter) peek() (Token, bool) {
	if f.i+1 < len(f.toks) {
		return f.toks[f.i+1], true
	}
	return Token{}, false
}

func (f *stFormatter) token(t Token) error {
	if f.untilNL && t.NL {
		f.flush()
	}

	if f.varOpen != nil {
		switch {
		case varQualifiers[upper(t)]:
			f.add(t)
			return nil
		case t.Kind == Comment || t.Kind == Pragma:
			f.comment(t)
			return nil
		}
		f.flush()
		f.push(*f.varOpen)
		f.varOpen = nil
	}

	switch t.Kind {
	case Comment, Pragma:
		f.comment(t)
		return nil
	case Operator:
		return f.operator(t)
	}

	if len(f.cur) == 0 && f.pending == "" && f.caseLabel() {
		b, _ := f.top()
		f.start(b.header + 1)
		f.label = true
	}
	if t.Kind == Ident && f.parens == 0 && !f.label {
		handled, err := f.keyword(t, strings.ToUpper(t.Text))
		if handled || err != nil {
			return err
		}
	}
	f.add(t)
	return nil
}

func (f *stFormatter) operator(t Token) error {
	if len(f.cur) == 0 && f.pending == "" && f.caseLabel() {
		b, _ := f.top()
		f.start(b.header + 1)
		f.label = true
	}
	switch t.Text {
	case "(", "[":
		f.parens++
	case ")", "]":
		if f.parens > 0 {
			f.parens--
		}
	case ";":
		f.add(t)
		f.pending = ""
		f.parens = 0
		f.flush()
		return nil
	case ":":
		if f.label {
			f.add(t)
			f.flush()
			return nil
		}
	}
	f.add(t)
	return nil
}

// comment keeps a comment trailing when it shares a source line with code,
// otherwise puts it on lines of its own.
func (f *stFormatter) comment(t Token) {
	multi := strings.Contains(t.Text, "\n")
	if !multi {
		if len(f.cur) > 0 {
			f.cur = append(f.cur, t)
			// nothing may follow a line comment on the same output line
			if strings.HasPrefix(t.Text, "//") {
				f.untilNL = true
			}
			return
		}
		if n := len(f.lines); n > 0 && !t.NL {
			f.lines[n-1].Text += " " + t.Text
			return
		}
	}
	d := f.depth()
	if len(f.cur) > 0 {
		f.flush()
	}
	for _, l := range commentLines(t.Text) {
		f.lines = append(f.lines, Line{Depth: d, Text: l})
	}
}

// caseLabel reports whether the tokens from the cursor up to a colon form a
// CASE label of the innermost open CASE.
func (f *stFormatter) caseLabel() bool {
	b, ok := f.top()
	if !ok || b.kind != "CASE" {
		return false
	}
	for j := f.i; j < len(f.toks); j++ {
		t := f.toks[j]
		switch t.Kind {
		case Comment, Pragma:
			continue
		case Number, Typed, String:
			continue
		case Ident:
			u := strings.ToUpper(t.Text)
			if u == "ELSE" || strings.HasPrefix(u, "END_") || headerEnd[u] != "" || u == "REPEAT" {
				return false
			}
			continue
		case Operator:
			switch t.Text {
			case ":":
				return j > f.i
			case ",", "..", ".", "-", "+":
				continue
			}
		}
		return false
	}
	return false
}

func (f *stFormatter) keyword(t Token, kw string) (bool, error) {
	if end, ok := headerEnd[f.pending]; ok && kw == end {
		f.add(t)
		f.flush()
		if f.pending != "ELSIF" {
			b := block{kind: f.pending, header: f.pendingDepth, body: f.pendingDepth + 1}
			if f.pending == "CASE" {
				b.body = f.pendingDepth + 2
			}
			f.push(b)
		}
		f.pending = ""
		return true, nil
	}

	switch {
	case kw == "IF" || kw == "FOR" || kw == "WHILE" || kw == "CASE":
		f.flush()
		f.pending = kw
		f.pendingDepth = f.depth()
		f.add(t)
		return true, nil

	case kw == "ELSIF":
		b, ok := f.top()
		if !ok || b.kind != "IF" {
			return false, perrors.NewInvariant(f.unit, "ELSIF outside IF")
		}
		f.flush()
		f.start(b.header)
		f.pending = kw
		f.pendingDepth = b.header
		f.add(t)
		return true, nil

	case kw == "ELSE":
		b, ok := f.top()
		if !ok || (b.kind != "IF" && b.kind != "CASE") {
			return false, perrors.NewInvariant(f.unit, "ELSE outside IF or CASE")
		}
		f.flush()
		if b.kind == "CASE" {
			f.start(b.header + 1)
		} else {
			f.start(b.header)
		}
		f.add(t)
		f.flush()
		return true, nil

	case kw == "REPEAT":
		f.flush()
		d := f.depth()
		f.add(t)
		f.flush()
		f.push(block{kind: kw, header: d, body: d + 1})
		return true, nil

	case kw == "UNTIL":
		b, ok := f.top()
		if !ok || b.kind != "REPEAT" {
			return false, perrors.NewInvariant(f.unit, "UNTIL outside REPEAT")
		}
		f.flush()
		f.start(b.header)
		f.add(t)
		return true, nil

	case varKinds[kw]:
		f.flush()
		d := f.depth()
		f.add(t)
		f.varOpen = &block{kind: "VAR", header: d, body: d + 1}
		return true, nil

	case kw == "STRUCT" || kw == "UNION":
		f.flush()
		d := f.depth()
		f.add(t)
		f.flush()
		f.push(block{kind: kw, header: d, body: d + 1})
		return true, nil

	case kw == "TYPE" || pouKinds[kw]:
		f.flush()
		d := f.depth()
		f.add(t)
		f.untilNL = true
		f.push(block{kind: kw, header: d, body: d, pou: pouKinds[kw]})
		return true, nil

	case strings.HasPrefix(kw, "END_"):
		kind := strings.TrimPrefix(kw, "END_")
		if !blockKinds[kind] && !pouKinds[kind] {
			return false, nil
		}
		f.flush()
		f.pending = ""
		b, err := f.pop(kind)
		if err != nil {
			return false, err
		}
		f.start(b.header)
		f.add(t)
		if next, ok := f.peek(); ok && next.Kind == Operator && next.Text == ";" {
			f.add(next)
			f.i++
		}
		f.flush()
		return true, nil
	}
	return false, nil
}
