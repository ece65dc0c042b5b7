// Package logging provides structured logging using Go's slog package.
//
// Output always goes to standard error: standard output carries the
// transformed document and must never see a log record.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
)

func init() {
	InitLogger(LevelWarn, FormatAuto)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatAuto picks FormatText on a terminal and FormatJSON otherwise.
	FormatAuto Format = iota
	// FormatJSON outputs logs in JSON format.
	FormatJSON
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// ParseLevel maps a flag value to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelWarn, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	}
	return FormatAuto, fmt.Errorf("unknown log format %q", s)
}

// InitLogger initializes the global logger on standard error.
func InitLogger(level Level, format Format) {
	if format == FormatAuto {
		format = FormatJSON
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			format = FormatText
		}
	}
	defaultLogger = NewLogger(os.Stderr, level, format)
	slog.SetDefault(defaultLogger)
}

// NewLogger builds a logger writing to w. FormatAuto is treated as JSON.
func NewLogger(w io.Writer, level Level, format Format) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatText {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// SetLogger replaces the global logger, mainly for tests.
func SetLogger(l *slog.Logger) {
	defaultLogger = l
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// InputRead logs the size of a loaded input file.
func InputRead(path string, size int, compressed bool) {
	defaultLogger.Debug("input_read",
		"path", path,
		"size", humanize.Bytes(uint64(size)),
		"xz", compressed,
	)
}

// Stage logs the completion of one pipeline stage.
func Stage(stage string, elapsed time.Duration, args ...any) {
	allArgs := []any{
		"stage", stage,
		"duration_us", elapsed.Microseconds(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Debug("stage_done", allArgs...)
}

// Failure logs a failed conversion together with its error kind.
func Failure(path, kind string, err error) {
	defaultLogger.Error("conversion_failed",
		"path", path,
		"kind", kind,
		"error", err.Error(),
	)
}
