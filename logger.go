package recall

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with recall-specific helpers.
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

// LogAdd logs an add operation.
func (l *Logger) LogAdd(ctx context.Context, collection string, count int, firstID uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"collection", collection,
			"count", count,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"collection", collection,
			"count", count,
			"first_id", firstID,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, collection string, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"collection", collection,
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"collection", collection,
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogPersist logs a persist operation.
func (l *Logger) LogPersist(ctx context.Context, collection string, vectors int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "persist failed",
			"collection", collection,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "persist completed",
			"collection", collection,
			"vectors", vectors,
		)
	}
}

// LogRestore logs a restore operation.
func (l *Logger) LogRestore(ctx context.Context, collection string, vectors, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "restore failed",
			"collection", collection,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "restore completed",
			"collection", collection,
			"vectors", vectors,
			"records", records,
		)
	}
}
