package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
)

// Field names shared by every component that logs a report run.
const (
	FieldPublisherID = "publisher_id"
	FieldRunID       = "run_id"
	FieldTable       = "table"
	FieldJobID       = "job_id"
	FieldRequestID   = "request_id"
)

// New creates a console logger at info level.
func New() zerolog.Logger {
	return NewFromConfig("info", "console")
}

// NewFromConfig creates a logger for the given level ("debug", "info", ...)
// and format ("console" or "json"). Unknown levels fall back to info.
// JSON output goes to stdout where Cloud Logging parses it.
func NewFromConfig(level, format string) zerolog.Logger {
	var w io.Writer = os.Stdout
	if !strings.EqualFold(format, "json") {
		w = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return NewWithWriter(w).Level(lvl)
}

// NewWithWriter creates a new structured logger with a custom writer
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context or returns a default logger
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return New()
}

// WithFields adds structured fields to a logger
func WithFields(logger zerolog.Logger, fields map[string]interface{}) zerolog.Logger {
	ctx := logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}
