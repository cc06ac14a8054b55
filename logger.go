package snapsweep

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with snapsweep-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithPathCount adds a path count field to the logger.
func (l *Logger) WithPathCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("paths", count),
	}
}

// LogUpdateIndex logs one index reconciliation run.
func (l *Logger) LogUpdateIndex(ctx context.Context, newCount, moved, unchanged, failed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index update failed",
			"new", newCount,
			"moved", moved,
			"failed", failed,
			"error", err,
		)
	} else if failed > 0 {
		l.WarnContext(ctx, "index update completed with failures",
			"new", newCount,
			"moved", moved,
			"unchanged", unchanged,
			"failed", failed,
		)
	} else {
		l.InfoContext(ctx, "index update completed",
			"new", newCount,
			"moved", moved,
			"unchanged", unchanged,
		)
	}
}

// LogMine logs one duplicate mining run.
func (l *Logger) LogMine(ctx context.Context, pairs int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "duplicate mining failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "duplicate mining completed",
			"pairs", pairs,
		)
	}
}

// LogMarkDeleted logs one soft-delete run.
func (l *Logger) LogMarkDeleted(ctx context.Context, marked, skipped int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "soft delete failed",
			"marked", marked,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "soft delete completed",
			"marked", marked,
			"skipped", skipped,
		)
	}
}

// LogSnapshot logs a snapshot operation.
func (l *Logger) LogSnapshot(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"name", name,
		)
	}
}
