package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	globalMu     sync.RWMutex
	globalLogger Logger
	globalOnce   sync.Once
)

// Global returns the process-wide logger. If SetGlobal has not been called it
// lazily initializes a stderr text logger; the level can be raised with the
// PERCH_LOG_LEVEL environment variable (debug, info, warn, error).
func Global() Logger {
	globalOnce.Do(func() {
		globalMu.Lock()
		if globalLogger == nil {
			globalLogger = NewSlogLogger(os.Stderr, levelFromEnv())
		}
		globalMu.Unlock()
	})
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetGlobal replaces the process-wide logger. Intended to be called once
// during startup, before any component caches a module logger.
func SetGlobal(l Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
	globalOnce.Do(func() {})
}

// NewDiscard returns a logger that drops every record. Useful in tests.
func NewDiscard() Logger {
	return NewSlogLogger(io.Discard, slog.LevelError)
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("PERCH_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
