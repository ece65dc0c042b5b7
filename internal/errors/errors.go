// Package errors provides the error kinds surfaced by the textconv pipeline.
//
// Every failure falls into one of three kinds, each with a sentinel that
// errors.Is matches against the typed error carrying the details.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the three failure kinds.
var (
	// ErrMalformedInput indicates bytes that are not well-formed XML or that
	// violate a structural assumption the renderer depends on.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnsupportedEncoding indicates content that cannot be decoded under
	// the declared or assumed text encoding.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	// ErrInternal indicates a broken internal invariant, such as unbalanced
	// nesting found while re-flowing embedded logic text.
	ErrInternal = errors.New("internal invariant violation")
)

// ParseError represents input that could not be parsed.
type ParseError struct {
	Format  string // Format being parsed (e.g., "XML", "ST")
	Line    int    // 1-based source line, 0 when unknown
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed %s at line %d: %s", e.Format, e.Line, e.Message)
	}
	return fmt.Sprintf("malformed %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is reports ErrMalformedInput as the kind of every ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrMalformedInput }

// EncodingError represents content that cannot be decoded.
type EncodingError struct {
	Label   string // Declared or detected encoding label
	Message string // Why decoding failed
	Err     error  // Underlying error, if any
}

func (e *EncodingError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("unsupported encoding %q: %s", e.Label, e.Message)
	}
	return fmt.Sprintf("unsupported encoding: %s", e.Message)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Is reports ErrUnsupportedEncoding as the kind of every EncodingError.
func (e *EncodingError) Is(target error) bool { return target == ErrUnsupportedEncoding }

// InvariantError represents a defensive check that failed.
type InvariantError struct {
	Unit    string // Program unit being rendered, if known
	Message string
}

func (e *InvariantError) Error() string {
	if e.Unit != "" {
		return fmt.Sprintf("internal invariant violation in %s: %s", e.Unit, e.Message)
	}
	return fmt.Sprintf("internal invariant violation: %s", e.Message)
}

// Is reports ErrInternal as the kind of every InvariantError.
func (e *InvariantError) Is(target error) bool { return target == ErrInternal }

// NewParse creates a ParseError
func NewParse(format string, line int, message string) *ParseError {
	return &ParseError{Format: format, Line: line, Message: message}
}

// NewEncoding creates an EncodingError
func NewEncoding(label, message string, err error) *EncodingError {
	return &EncodingError{Label: label, Message: message, Err: err}
}

// NewInvariant creates an InvariantError
func NewInvariant(unit, format string, args ...any) *InvariantError {
	return &InvariantError{Unit: unit, Message: fmt.Sprintf(format, args...)}
}

// KindOf names the failure kind of err for diagnostics.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedInput):
		return "MalformedInput"
	case errors.Is(err, ErrUnsupportedEncoding):
		return "UnsupportedEncoding"
	case errors.Is(err, ErrInternal):
		return "InternalInvariantViolation"
	default:
		return "Internal"
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
