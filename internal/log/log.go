// Package log is the application-wide leveled key/value logger.
//
// Call sites use the package functions directly:
//
//	appLog.Info("rendered day", "day", day, "events", n)
//	appLog.Error("layout save failed", err, "path", path)
//
// Output goes through log/slog; Init swaps the handler (text or JSON) and the
// minimum level.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	mu       sync.RWMutex
	logger   *slog.Logger
	minLevel = new(slog.LevelVar)
	initOnce sync.Once
)

// initLogger installs the default text handler on stderr at INFO.
func initLogger() {
	initOnce.Do(func() {
		if logger == nil {
			minLevel.Set(slog.LevelInfo)
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: minLevel}))
		}
	})
}

// Init replaces the output handler. jsonOutput selects slog's JSON handler,
// otherwise the human-readable text handler is used.
func Init(w io.Writer, level Level, jsonOutput bool) {
	initOnce.Do(func() {})
	minLevel.Set(toSlog(level))
	opts := &slog.HandlerOptions{Level: minLevel}
	var h slog.Handler
	if jsonOutput {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	mu.Lock()
	logger = slog.New(h)
	mu.Unlock()
}

func SetLevel(l Level) {
	initLogger()
	minLevel.Set(toSlog(l))
}

// ParseLevel converts "debug", "info", "warn" or "error" (any case) to a
// Level. Unknown strings map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	current().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	current().Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	current().Warn(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	current().Error(msg, extended...)
}

// Logger exposes the underlying slog.Logger for libraries that take one.
func Logger() *slog.Logger {
	return current()
}

func current() *slog.Logger {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func toSlog(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
