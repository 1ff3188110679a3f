// Package logging provides structured logging for the updater using slog.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	defaultLogger *slog.Logger
	defaultOnce   sync.Once
)

// Options configures the logger behavior.
type Options struct {
	// Level sets the minimum log level. Defaults to slog.LevelInfo.
	Level slog.Level
	// Output sets the output destination. Defaults to os.Stderr.
	Output io.Writer
	// JSON enables JSON output format. Defaults to false (text format).
	JSON bool
}

// New creates a new logger with the given options.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	}
	return slog.New(handler)
}

// Default returns the default logger, creating it if necessary.
func Default() *slog.Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(Options{Level: slog.LevelInfo})
	})
	return defaultLogger
}

// SetDefault sets the default logger and also sets it as slog's default.
func SetDefault(logger *slog.Logger) {
	// Trigger the once so Default() won't overwrite this logger.
	defaultOnce.Do(func() {})
	defaultLogger = logger
	slog.SetDefault(logger)
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// RotatingFile returns a size-rotated log writer at path. Deferred swap
// helpers from several runs may append to the same file.
func RotatingFile(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}, nil
}

// Common attribute keys for consistent logging across the codebase.
const (
	KeyArtifact = "artifact"
	KeyPath     = "path"
	KeyVersion  = "version"
	KeyURL      = "url"
	KeyProject  = "project"
	KeySwap     = "swap"
	KeyAttempt  = "attempt"
	KeyBytes    = "bytes"
	KeyError    = "error"
)

// Artifact returns a slog attribute naming an artifact key.
func Artifact(key string) slog.Attr { return slog.String(KeyArtifact, key) }

// Path returns a slog attribute for file path logging.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Version returns a slog attribute for a version token.
func Version(v string) slog.Attr { return slog.String(KeyVersion, v) }

// URL returns a slog attribute for a remote location.
func URL(u string) slog.Attr { return slog.String(KeyURL, u) }

// Err returns a slog attribute for error logging.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(KeyError, err)
}
