package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is the global logger instance
var Logger *slog.Logger

// output is swappable so tests can capture log lines
var output io.Writer = os.Stdout

// InitLogger initializes the global logger: JSON in production, text in
// development, info level.
func InitLogger(production bool) {
	InitLoggerWithLevel(production, slog.LevelInfo)
}

// InitLoggerWithLevel initializes the global logger at a specific level.
func InitLoggerWithLevel(production bool, level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// ensure returns the global logger, initializing a development logger when
// nothing configured one yet.
func ensure() *slog.Logger {
	if Logger == nil {
		InitLogger(false)
	}
	return Logger
}

// WithContext returns a logger for the given context.
func WithContext(ctx context.Context) *slog.Logger {
	return ensure()
}

// WithSymbol returns a logger carrying the underlying symbol field.
func WithSymbol(symbol string) *slog.Logger {
	return ensure().With("symbol", symbol)
}

// WithRun returns a logger carrying the screen run ID field.
func WithRun(runID string) *slog.Logger {
	return ensure().With("run_id", runID)
}

// WithError returns a logger carrying the error field.
func WithError(err error) *slog.Logger {
	return ensure().With("error", err)
}

// Debug logs a debug message on the global logger.
func Debug(msg string, args ...any) {
	ensure().Debug(msg, args...)
}

// Info logs an info message on the global logger.
func Info(msg string, args ...any) {
	ensure().Info(msg, args...)
}

// Warn logs a warning message on the global logger.
func Warn(msg string, args ...any) {
	ensure().Warn(msg, args...)
}

// Error logs an error message on the global logger.
func Error(msg string, args ...any) {
	ensure().Error(msg, args...)
}

// Fatal logs an error message and exits the process.
func Fatal(msg string, args ...any) {
	ensure().Error(msg, args...)
	os.Exit(1)
}
