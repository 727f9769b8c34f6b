// Package log provides logging functionality for systemd-web.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger defines the interface for logging operations.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// SlogAdapter wraps slog.Logger to implement our Logger interface.
type SlogAdapter struct {
	logger *slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) {
	s.logger.Debug(msg, args...)
}

// Info logs an info message.
func (s *SlogAdapter) Info(msg string, args ...any) {
	s.logger.Info(msg, args...)
}

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) {
	s.logger.Warn(msg, args...)
}

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) {
	s.logger.Error(msg, args...)
}

// With returns a Logger that adds args to every record.
func (s *SlogAdapter) With(args ...any) Logger {
	return &SlogAdapter{logger: s.logger.With(args...)}
}

// Slog exposes the underlying slog.Logger, e.g. for http.Server.ErrorLog.
func (s *SlogAdapter) Slog() *slog.Logger {
	return s.logger
}

// Options control handler construction.
type Options struct {
	Verbose bool
	Format  string // "text" or "json"
	Output  io.Writer
}

// NewLogger creates a new text logger with the specified verbosity.
func NewLogger(verbose bool) Logger {
	return New(Options{Verbose: verbose})
}

// New creates a logger from Options. Logs go to stderr unless Output is set so
// that structured command output on stdout stays clean.
func New(opts Options) Logger {
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if opts.Verbose {
		handlerOpts.Level = slog.LevelDebug
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	default:
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	return &SlogAdapter{logger: slog.New(handler)}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return &SlogAdapter{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

var defaultLogger Logger

// GetLogger returns the process-wide logger, creating a quiet one on first use.
func GetLogger() Logger {
	if defaultLogger == nil {
		defaultLogger = NewLogger(false)
	}
	return defaultLogger
}

// Init initializes the default logger.
// This function should be called once at application startup.
func Init(opts Options) Logger {
	defaultLogger = New(opts)
	return defaultLogger
}

// NewSlogAdapter creates a Logger from an slog.Logger.
func NewSlogAdapter(slogLogger *slog.Logger) Logger {
	return &SlogAdapter{logger: slogLogger}
}
