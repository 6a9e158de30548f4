// Package logger provides structured logging for docstage.
// A Logger is created once per run and passed to the store, the extractor
// registry and the ingestion service. With verbose mode enabled via the
// --verbose flag, debug messages describe each pipeline stage.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Logger wraps slog with a switchable level.
type Logger struct {
	log   *slog.Logger
	level *slog.LevelVar
}

// New creates a text logger writing to w.
func New(w io.Writer, verbose bool) *Logger {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	if verbose {
		level.Set(slog.LevelDebug)
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{log: slog.New(handler), level: level}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New(io.Discard, false)
}

// SetVerbose switches between debug and info level.
func (l *Logger) SetVerbose(v bool) {
	if v {
		l.level.Set(slog.LevelDebug)
		return
	}
	l.level.Set(slog.LevelInfo)
}

// IsVerbose returns true if debug messages are emitted.
func (l *Logger) IsVerbose() bool {
	return l.level.Level() <= slog.LevelDebug
}

// With returns a logger that adds attrs to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{log: l.log.With(args...), level: l.level}
}

// Slog exposes the underlying logger.
func (l *Logger) Slog() *slog.Logger {
	return l.log
}

// Debug logs a message at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.log.Debug(msg, args...)
}

// Info logs a message at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.log.Info(msg, args...)
}

// Warn logs a message at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.log.Warn(msg, args...)
}

// Error logs a message at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.log.Error(msg, args...)
}

// Section marks the start of a pipeline stage in verbose output.
func (l *Logger) Section(name string) {
	if !l.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	l.log.Debug("=== " + name + " ===")
}

// Printf logs a formatted warning. It lets the worker pool report
// recovered panics through this logger.
func (l *Logger) Printf(format string, args ...any) {
	l.log.Warn(fmt.Sprintf(format, args...))
}
