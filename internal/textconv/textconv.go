// Package textconv runs the conversion of one project file: parse, normalize
// identifiers, drop diagram layout, render program units and annotate them
// with context markers.
//
// The conversion is all-or-nothing. Output is produced only after every
// stage has succeeded, so a failure never leaves a truncated document
// behind.
package textconv

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/damischa1/plc-textconv/internal/annotate"
	perrors "github.com/damischa1/plc-textconv/internal/errors"
	"github.com/damischa1/plc-textconv/internal/filter"
	"github.com/damischa1/plc-textconv/internal/idnorm"
	"github.com/damischa1/plc-textconv/internal/logging"
	"github.com/damischa1/plc-textconv/internal/render"
	"github.com/damischa1/plc-textconv/internal/tree"
)

// Format selects the output representation.
type Format string

const (
	// FormatText writes marker lines and re-flowed logic.
	FormatText Format = "text"
	// FormatXML writes the normalized, filtered document with ctx attributes.
	FormatXML Format = "xml"
)

// Options configure a conversion.
type Options struct {
	Format  Format
	Symbols bool // annotate IL operands with their I/O symbols
}

// DefaultOptions returns the options git gets when it runs the filter.
func DefaultOptions() Options {
	return Options{Format: FormatText, Symbols: true}
}

// Transform converts project-file bytes into diff-friendly text.
func Transform(data []byte, opts Options) ([]byte, error) {
	start := time.Now()
	doc, err := tree.Parse(data)
	if err != nil {
		return nil, err
	}
	logging.Stage("parse", time.Since(start), "nodes", doc.Len())

	start = time.Now()
	ids := idnorm.Normalize(doc, filter.IsDiagram)
	logging.Stage("normalize", time.Since(start), "distinct", ids.Distinct, "replaced", ids.Replaced)

	start = time.Now()
	fs := filter.Apply(doc)
	logging.Stage("filter", time.Since(start), "diagram", fs.Diagram, "logic", fs.Logic, "unknown", fs.Unknown)

	start = time.Now()
	sections, err := render.Render(doc, render.Options{Symbols: opts.Symbols})
	if err != nil {
		return nil, err
	}
	logging.Stage("render", time.Since(start), "sections", len(sections))

	start = time.Now()
	var buf bytes.Buffer
	switch opts.Format {
	case FormatText, "":
		err = annotate.Write(&buf, annotate.Lines(sections))
	case FormatXML:
		annotate.Tree(doc, sections)
		err = tree.WriteXML(&buf, doc, "  ")
	default:
		return nil, fmt.Errorf("unknown output format %q", opts.Format)
	}
	if err != nil {
		return nil, perrors.Wrap(err, "write output")
	}
	logging.Stage("annotate", time.Since(start), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// Convert reads path and writes its conversion to w in a single write.
func Convert(path string, w io.Writer, opts Options) error {
	data, err := ReadInput(path)
	if err != nil {
		return err
	}
	out, err := Transform(data, opts)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// ── Input ─────────────────────────────────────────────────────────────────────

var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// ReadInput loads a project file, decompressing xz input transparently.
func ReadInput(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, perrors.Wrapf(err, "read %s", path)
	}
	data, compressed, err := Decompress(raw)
	if err != nil {
		return nil, err
	}
	logging.InputRead(path, len(data), compressed)
	return data, nil
}

// Decompress unpacks raw when it starts with the xz magic and reports
// whether it did.
func Decompress(raw []byte) ([]byte, bool, error) {
	if !bytes.HasPrefix(raw, xzMagic) {
		return raw, false, nil
	}
	r, err := xz.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, true, &perrors.ParseError{Format: "xz", Message: err.Error(), Err: err}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, true, &perrors.ParseError{Format: "xz", Message: err.Error(), Err: err}
	}
	return data, true, nil
}

// ── Fingerprint ───────────────────────────────────────────────────────────────

// Fingerprint hashes converted output with BLAKE3-256. Two project files
// with equal fingerprints have the same logic content.
func Fingerprint(out []byte) string {
	sum := blake3.Sum256(out)
	return hex.EncodeToString(sum[:])
}
