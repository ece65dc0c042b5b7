package tree

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	perrors "github.com/damischa1/plc-textconv/internal/errors"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}

	// declRe reads the encoding label of an XML declaration.
	declRe = regexp.MustCompile(`^\s*<\?xml[^>]*?\sencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)
)

// Parse builds a Document from raw project-file bytes.
//
// Element and attribute order is kept exactly. Only well-formedness is
// checked; unknown elements pass through unchanged.
func Parse(data []byte) (*Document, error) {
	data, transcoded, err := decodeBOM(data)
	if err != nil {
		return nil, err
	}

	label := declaredEncoding(data)
	if isUTF8Label(label) || (transcoded && isUTF16Label(label)) {
		if !utf8.Valid(data) {
			return nil, perrors.NewEncoding(label, "content is not valid UTF-8", nil)
		}
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	dec.Entity = map[string]string{}

	var charsetErr error
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		r, err := charsetReader(charset, input, transcoded)
		if err != nil {
			charsetErr = err
		}
		return r, err
	}

	doc := NewDocument()
	stack := []NodeID{0}
	roots := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if charsetErr != nil {
				return nil, charsetErr
			}
			return nil, syntaxError(err)
		}

		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			if top == 0 {
				roots++
				if roots > 1 {
					line, _ := dec.InputPos()
					return nil, perrors.NewParse("XML", line, fmt.Sprintf("second root element <%s>", t.Name.Local))
				}
			}
			id := doc.AppendElement(top, t.Name.Local, convertAttrs(t.Attr))
			stack = append(stack, id)

		case xml.EndElement:
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if top == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					line, _ := dec.InputPos()
					return nil, perrors.NewParse("XML", line, "text outside the root element")
				}
				continue
			}
			doc.AppendText(top, string(t))

		// Comments, processing instructions and directives carry no content.
		case xml.Comment, xml.ProcInst, xml.Directive:
		}
	}

	if roots == 0 {
		return nil, perrors.NewParse("XML", 0, "no root element")
	}
	return doc, nil
}

// convertAttrs stores attributes by local name. Namespace declarations keep
// their xmlns form; a second attribute with the same local name is dropped.
func convertAttrs(in []xml.Attr) []Attr {
	if len(in) == 0 {
		return nil
	}
	out := make([]Attr, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, a := range in {
		name := a.Name.Local
		switch {
		case a.Name.Space == "xmlns":
			name = "xmlns:" + a.Name.Local
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			name = "xmlns"
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, Attr{Name: name, Value: a.Value})
	}
	return out
}

func syntaxError(err error) error {
	if se, ok := err.(*xml.SyntaxError); ok {
		pe := perrors.NewParse("XML", se.Line, se.Msg)
		pe.Err = err
		return pe
	}
	pe := perrors.NewParse("XML", 0, err.Error())
	pe.Err = err
	return pe
}

// ── Encodings ─────────────────────────────────────────────────────────────────

// decodeBOM strips a UTF-8 byte-order mark and transcodes UTF-16 input to
// UTF-8. The second result reports whether transcoding happened.
func decodeBOM(data []byte) ([]byte, bool, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], false, nil
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return nil, false, perrors.NewEncoding("UTF-16", "cannot transcode", err)
		}
		return out, true, nil
	}
	return data, false, nil
}

func declaredEncoding(data []byte) string {
	head := data
	if len(head) > 256 {
		head = head[:256]
	}
	m := declRe.FindSubmatch(head)
	if m == nil {
		return ""
	}
	return string(m[1])
}

func isUTF8Label(label string) bool {
	return label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8")
}

func isUTF16Label(label string) bool {
	l := strings.ToLower(label)
	return l == "utf-16" || l == "utf-16le" || l == "utf-16be" || l == "unicode"
}

func isASCIILabel(label string) bool {
	l := strings.ToLower(label)
	return l == "us-ascii" || l == "ascii"
}

// charsetReader resolves a declared encoding through the IANA registry.
func charsetReader(charset string, input io.Reader, transcoded bool) (io.Reader, error) {
	switch {
	case transcoded && isUTF16Label(charset):
		return input, nil
	case isASCIILabel(charset), isUTF8Label(charset):
		return input, nil
	case isUTF16Label(charset):
		return nil, perrors.NewEncoding(charset, "UTF-16 content without a byte-order mark", nil)
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil, perrors.NewEncoding(charset, "unknown charset", err)
	}
	if enc == nil {
		return nil, perrors.NewEncoding(charset, "charset has no decoder", nil)
	}
	return enc.NewDecoder().Reader(input), nil
}
