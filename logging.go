// logging.go: Pluggable logging for the detection engine
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package autodetect

import (
	"context"
	"sync"
)

// loggerContextKey is a custom type for context keys to avoid collisions
type loggerContextKey string

const loggerKey loggerContextKey = "logger"

// Logger defines the pluggable logging interface for the detection engine.
//
// The engine never logs through a concrete framework; callers integrate zap,
// logrus, zerolog or any custom logger by satisfying this interface. All
// methods accept structured key-value pairs.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, args ...any)

	// Info logs an info message with optional key-value pairs
	Info(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs
	Warn(msg string, args ...any)

	// Error logs an error message with optional key-value pairs
	Error(msg string, args ...any)

	// With returns a new logger carrying persistent context key-value pairs
	With(args ...any) Logger
}

// NewLogger normalizes supported logger inputs into a Logger.
//
// A nil input yields a NoOpLogger so callers can omit logging entirely;
// anything else must already satisfy the Logger interface.
func NewLogger(logger any) Logger {
	switch l := logger.(type) {
	case Logger:
		return l
	case nil:
		return NewNoOpLogger()
	default:
		panic("unsupported logger type: expected Logger interface or nil")
	}
}

// NoOpLogger discards all log output. Used as the default when no logger is
// supplied and in tests that do not inspect log output.
type NoOpLogger struct{}

// NewNoOpLogger creates a new no-operation logger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// Debug implements Logger interface (no-op)
func (n *NoOpLogger) Debug(msg string, args ...any) {}

// Info implements Logger interface (no-op)
func (n *NoOpLogger) Info(msg string, args ...any) {}

// Warn implements Logger interface (no-op)
func (n *NoOpLogger) Warn(msg string, args ...any) {}

// Error implements Logger interface (no-op)
func (n *NoOpLogger) Error(msg string, args ...any) {}

// With implements Logger interface (no-op)
func (n *NoOpLogger) With(args ...any) Logger {
	return n
}

// TestLogger captures log messages for inspection in tests.
type TestLogger struct {
	mu       sync.RWMutex
	Messages []TestLogMessage
}

// TestLogMessage is one captured log record.
type TestLogMessage struct {
	Level   string
	Message string
	Args    []any
}

// NewTestLogger creates a new capturing logger.
func NewTestLogger() *TestLogger {
	return &TestLogger{Messages: make([]TestLogMessage, 0)}
}

func (t *TestLogger) record(level, msg string, args []any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Messages = append(t.Messages, TestLogMessage{Level: level, Message: msg, Args: args})
}

// Debug implements Logger interface (captures message)
func (t *TestLogger) Debug(msg string, args ...any) { t.record("DEBUG", msg, args) }

// Info implements Logger interface (captures message)
func (t *TestLogger) Info(msg string, args ...any) { t.record("INFO", msg, args) }

// Warn implements Logger interface (captures message)
func (t *TestLogger) Warn(msg string, args ...any) { t.record("WARN", msg, args) }

// Error implements Logger interface (captures message)
func (t *TestLogger) Error(msg string, args ...any) { t.record("ERROR", msg, args) }

// With implements Logger interface (returns a snapshot copy)
func (t *TestLogger) With(args ...any) Logger {
	t.mu.RLock()
	messages := make([]TestLogMessage, len(t.Messages))
	copy(messages, t.Messages)
	t.mu.RUnlock()
	return &TestLogger{Messages: messages}
}

// HasMessage reports whether a message with the given level and text was captured.
func (t *TestLogger) HasMessage(level, message string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, msg := range t.Messages {
		if msg.Level == level && msg.Message == message {
			return true
		}
	}
	return false
}

// DefaultLogger returns the library default logger (silent).
func DefaultLogger() Logger {
	return NewNoOpLogger()
}

// LoggerFromContext extracts a logger from context, falling back to the
// default logger when none is present.
func LoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return DefaultLogger()
}

// ContextWithLogger adds a logger to the context.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}
