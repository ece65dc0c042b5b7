package errors

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseError(t *testing.T) {
	err := &ParseError{Format: "XML", Line: 7, Message: "unexpected EOF", Err: io.ErrUnexpectedEOF}

	assert.Equal(t, "malformed XML at line 7: unexpected EOF", err.Error())
	assert.True(t, errors.Is(err, ErrMalformedInput))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.False(t, errors.Is(err, ErrUnsupportedEncoding))

	noLine := NewParse("XML", 0, "no root element")
	assert.Equal(t, "malformed XML: no root element", noLine.Error())
}

func TestEncodingError(t *testing.T) {
	err := NewEncoding("x-klingon", "unknown charset", nil)
	assert.Equal(t, `unsupported encoding "x-klingon": unknown charset`, err.Error())
	assert.True(t, errors.Is(err, ErrUnsupportedEncoding))

	anon := NewEncoding("", "invalid UTF-8", nil)
	assert.Equal(t, "unsupported encoding: invalid UTF-8", anon.Error())
}

func TestInvariantError(t *testing.T) {
	err := NewInvariant("Main", "END_IF without matching IF")
	assert.Equal(t, "internal invariant violation in Main: END_IF without matching IF", err.Error())
	assert.True(t, errors.Is(err, ErrInternal))

	assert.Equal(t, "internal invariant violation: depth 2", NewInvariant("", "depth %d", 2).Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"parse", NewParse("XML", 1, "x"), "MalformedInput"},
		{"wrapped parse", fmt.Errorf("reading: %w", NewParse("XML", 1, "x")), "MalformedInput"},
		{"encoding", NewEncoding("latin9", "x", nil), "UnsupportedEncoding"},
		{"invariant", NewInvariant("A", "x"), "InternalInvariantViolation"},
		{"other", io.EOF, "Internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))

	err := Wrapf(NewParse("XML", 3, "bad"), "reading %s", "a.smbp")
	assert.Equal(t, "reading a.smbp: malformed XML at line 3: bad", err.Error())
	assert.True(t, errors.Is(err, ErrMalformedInput))

	var pe *ParseError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, 3, pe.Line)
}
