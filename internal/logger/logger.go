// Package logger provides a structured, module-aware logging system built on
// Go's standard log/slog. Loggers are scoped per module ("audio", "birdnet",
// "scheduler") so output can be filtered by component, and fields are typed
// constructors rather than loose key/value pairs.
package logger

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Field is a typed structured logging attribute.
type Field = slog.Attr

// String constructs a string field.
func String(key, value string) Field { return slog.String(key, value) }

// Int constructs an int field.
func Int(key string, value int) Field { return slog.Int(key, value) }

// Int64 constructs an int64 field.
func Int64(key string, value int64) Field { return slog.Int64(key, value) }

// Float64 constructs a float64 field.
func Float64(key string, value float64) Field { return slog.Float64(key, value) }

// Bool constructs a bool field.
func Bool(key string, value bool) Field { return slog.Bool(key, value) }

// Duration constructs a duration field.
func Duration(key string, value time.Duration) Field { return slog.Duration(key, value) }

// Error constructs an error field. A nil error logs as "<nil>".
func Error(err error) Field {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// Logger is the interface components receive. Always inject Logger into
// components rather than reaching for the global directly; the global
// accessor exists for package-level convenience loggers only.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// Module returns a child logger scoped to the given module name.
	// Nested calls produce dotted scopes ("audio.capture").
	Module(name string) Logger

	// With returns a logger that includes the given fields on every record.
	With(fields ...Field) Logger
}

type slogLogger struct {
	l      *slog.Logger
	module string
}

// NewSlogLogger creates a Logger writing text records to w at the given level.
func NewSlogLogger(w io.Writer, level slog.Level) Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &slogLogger{l: slog.New(h)}
}

func (s *slogLogger) log(level slog.Level, msg string, fields []Field) {
	args := make([]any, 0, len(fields)+1)
	if s.module != "" {
		args = append(args, slog.String("module", s.module))
	}
	for _, f := range fields {
		args = append(args, f)
	}
	s.l.Log(context.Background(), level, msg, args...)
}

func (s *slogLogger) Debug(msg string, fields ...Field) { s.log(slog.LevelDebug, msg, fields) }
func (s *slogLogger) Info(msg string, fields ...Field)  { s.log(slog.LevelInfo, msg, fields) }
func (s *slogLogger) Warn(msg string, fields ...Field)  { s.log(slog.LevelWarn, msg, fields) }
func (s *slogLogger) Error(msg string, fields ...Field) { s.log(slog.LevelError, msg, fields) }

func (s *slogLogger) Module(name string) Logger {
	scoped := name
	if s.module != "" {
		scoped = s.module + "." + name
	}
	return &slogLogger{l: s.l, module: scoped}
}

func (s *slogLogger) With(fields ...Field) Logger {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	return &slogLogger{l: s.l.With(args...), module: s.module}
}
