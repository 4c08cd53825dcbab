package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name (case-insensitive) into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, &ParseError{Input: s}
	}
}

// ParseError reports an unrecognized level name.
type ParseError struct{ Input string }

func (e *ParseError) Error() string { return "unknown log level: " + e.Input }

// Field is a single structured logging attribute.
type Field struct {
	Key   string
	Value interface{}
}

// Str builds a string field.
func Str(key, value string) Field { return Field{Key: key, Value: value} }

// Int builds an int field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Int64 builds an int64 field.
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

// Err builds an error field under the conventional "error" key.
func Err(err error) Field { return Field{Key: "error", Value: err} }

// Component tags logs with a component name.
func Component(name string) Field { return Field{Key: "component", Value: name} }

// Logger is the structured logging facade used across runlog components.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a derived Logger carrying additional fields.
	With(fields ...Field) Logger
}

// Option configures a logger at construction time.
type Option func(*baseLogger)

// WithLevel sets the minimum log level.
func WithLevel(level Level) Option {
	return func(l *baseLogger) { l.level = level }
}

// WithJSON switches output to JSON records instead of text.
func WithJSON() Option {
	return func(l *baseLogger) { l.json = true }
}

// WithOutput directs log output to w instead of stderr.
func WithOutput(w io.Writer) Option {
	return func(l *baseLogger) { l.out = w }
}

// baseLogger implements Logger on top of the standard library slog.
type baseLogger struct {
	level Level
	json  bool
	out   io.Writer
	sl    *slog.Logger
}

// NewLogger creates a logger with the given options. Defaults: InfoLevel,
// text output to stderr.
func NewLogger(options ...Option) Logger {
	l := &baseLogger{level: InfoLevel, out: os.Stderr}
	for _, opt := range options {
		opt(l)
	}
	hopts := &slog.HandlerOptions{Level: toSlogLevel(l.level)}
	var h slog.Handler
	if l.json {
		h = slog.NewJSONHandler(l.out, hopts)
	} else {
		h = slog.NewTextHandler(l.out, hopts)
	}
	l.sl = slog.New(h)
	return l
}

// NewNop returns a logger that discards everything. Useful as a default for
// components constructed without an injected logger in tests.
func NewNop() Logger {
	return NewLogger(WithLevel(ErrorLevel), WithOutput(io.Discard))
}

func (l *baseLogger) Debug(msg string, fields ...Field) { l.sl.Debug(msg, args(fields)...) }
func (l *baseLogger) Info(msg string, fields ...Field)  { l.sl.Info(msg, args(fields)...) }
func (l *baseLogger) Warn(msg string, fields ...Field)  { l.sl.Warn(msg, args(fields)...) }
func (l *baseLogger) Error(msg string, fields ...Field) { l.sl.Error(msg, args(fields)...) }

func (l *baseLogger) With(fields ...Field) Logger {
	nl := *l
	nl.sl = l.sl.With(args(fields)...)
	return &nl
}

func args(fields []Field) []any {
	if len(fields) == 0 {
		return nil
	}
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
