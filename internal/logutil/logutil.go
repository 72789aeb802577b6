package logutil

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// New builds the process logger. format is "text" or "json"; unknown levels
// fall back to info.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything. Used as the default for
// components constructed without a logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// NewTimingLogger returns a closure that logs a debug message with duration when called.
// Pass in the logger, a start time, a message, and any initial fields.
func NewTimingLogger(logger *slog.Logger, start time.Time, msg string, initialFields ...any) func() {
	return func() {
		fields := append(initialFields, "duration", time.Since(start).String())
		logger.Debug(msg, fields...)
	}
}

// LogAndWrapErr logs an error with context fields and wraps it with a message.
// The returned error keeps the chain intact for errors.Is / errors.As.
func LogAndWrapErr(logger *slog.Logger, msg string, err error, fields ...any) error {
	if err == nil {
		return nil
	}
	logger.Error(msg, append(fields, "err", err)...)
	return fmt.Errorf("%s: %w", msg, err)
}

// WarnAndWrapErr is LogAndWrapErr at warn level, for failures the caller is
// expected to tolerate.
func WarnAndWrapErr(logger *slog.Logger, msg string, err error, fields ...any) error {
	if err == nil {
		return nil
	}
	logger.Warn(msg, append(fields, "err", err)...)
	return fmt.Errorf("%s: %w", msg, err)
}

// DebugAndWrapErr logs an error at debug level with context fields and wraps it with a message.
func DebugAndWrapErr(logger *slog.Logger, msg string, err error, fields ...any) error {
	if err == nil {
		return nil
	}
	logger.Debug(msg, append(fields, "err", err)...)
	return fmt.Errorf("%s: %w", msg, err)
}

// Redact shortens a credential for log output.
func Redact(token string) string {
	const keep = 8
	if len(token) <= keep {
		return strings.Repeat("*", len(token))
	}
	return token[:keep] + "..."
}
