// Package log provides a structured logging interface for the sftrees
// pipeline.
//
// The interface is slog-shaped and implementation-agnostic; the default
// provider is backed by zerolog. Components obtain named loggers through a
// LoggerProvider, which keeps logging injectable for tests.
//
// Example usage:
//
//	provider := log.NewZerologProvider(log.ToLogLevel("info"))
//	logger := provider.GetLoggerWithName("Tuner")
//	logger.Info("fold evaluated",
//	    log.FoldKey, 3,
//	    log.AccuracyKey, 0.91,
//	)
package log

import (
	"context"
)

// Logger defines a minimal structured logging interface.
//
// Fields are alternating key-value pairs, as in log/slog. With returns a
// derived logger carrying pre-populated fields.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If the first field is an error, it is attached as the log event's error.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, value-compatible with slog.Level.
type Level int

// Standard logging levels.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates and configures loggers. It exists so that the
// pipeline can inject a test logger without touching global state.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger with a component identifier.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for loggers from this provider.
	SetLevel(level Level)
}
