package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	globalLogger *slog.Logger
	debugEnabled bool
	mu           sync.RWMutex
)

// SetGlobal sets the global logger and debug state
func SetGlobal(logger *slog.Logger, debug bool) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = logger
	debugEnabled = debug
}

// Get returns the global logger instance
func Get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	if globalLogger != nil {
		return globalLogger
	}

	// Fallback logger
	level := LevelFromEnv(slog.LevelInfo)
	if debugEnabled {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}
	handler := slog.NewTextHandler(os.Stderr, opts)
	return slog.New(handler)
}

// IsDebug returns whether debug mode is enabled
func IsDebug() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugEnabled
}

// LevelFromEnv reads LOG_LEVEL (debug, info, warn, error), returning fallback when unset.
func LevelFromEnv(fallback slog.Level) slog.Level {
	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		return fallback
	}
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}
