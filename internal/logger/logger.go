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

type options struct {
	out   io.Writer
	level zerolog.Level
	json  bool
}

// Option configures New.
type Option func(*options)

// WithLevel sets the minimum level by name (debug, info, warn, error).
// Unknown names mean info.
func WithLevel(name string) Option {
	return func(o *options) { o.level = ParseLevel(name) }
}

// WithJSON switches from console output to JSON lines.
func WithJSON(on bool) Option {
	return func(o *options) { o.json = on }
}

// WithOutput redirects output from stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// ParseLevel maps a level name onto a zerolog level, falling back to info.
func ParseLevel(name string) zerolog.Level {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// New creates a console logger with timestamp and caller at info level.
func New(opts ...Option) zerolog.Logger {
	o := options{out: os.Stdout, level: zerolog.InfoLevel}
	for _, opt := range opts {
		opt(&o)
	}
	out := o.out
	if !o.json {
		out = zerolog.ConsoleWriter{Out: o.out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(o.level).With().Timestamp().Caller().Logger()
}

// NewWithWriter creates a JSON logger writing to w.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return New(WithOutput(w), WithJSON(true), WithLevel("debug"))
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
