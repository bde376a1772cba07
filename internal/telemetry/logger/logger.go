// Package logger provides structured logging for ClubMesh.
//
// It wraps log/slog with automatic redaction of token secrets and
// context-aware request/trace ID propagation. JSON output by default.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the application logger interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

// Config holds logger configuration.
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // json (default) or text
	Output    io.Writer
	AddSource bool
}

// DefaultConfig returns JSON logging at info level to stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: os.Stderr}
}

// level is shared by every handler so SetLevel applies everywhere.
var level = new(slog.LevelVar)

// New creates a logger with the given configuration. Every attribute
// passes through the redaction filter before it is written.
func New(cfg Config) (Logger, error) {
	level.Set(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text", "console":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	return &stdLogger{slog: slog.New(handler), ctx: context.Background()}, nil
}

// SetLevel adjusts the level of every logger built by New.
func SetLevel(s string) {
	level.Set(parseLevel(s))
}

// GetLevel reports the current level.
func GetLevel() string {
	switch level.Level() {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	default:
		return "info"
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

type stdLogger struct {
	slog *slog.Logger
	ctx  context.Context
}

func (l *stdLogger) Debug(msg string, args ...any) { l.slog.DebugContext(l.ctx, msg, args...) }
func (l *stdLogger) Info(msg string, args ...any)  { l.slog.InfoContext(l.ctx, msg, args...) }
func (l *stdLogger) Warn(msg string, args ...any)  { l.slog.WarnContext(l.ctx, msg, args...) }
func (l *stdLogger) Error(msg string, args ...any) { l.slog.ErrorContext(l.ctx, msg, args...) }

func (l *stdLogger) With(args ...any) Logger {
	return &stdLogger{slog: l.slog.With(args...), ctx: l.ctx}
}

func (l *stdLogger) WithContext(ctx context.Context) Logger {
	return &stdLogger{slog: l.slog, ctx: ctx}
}

var defaultLogger atomic.Pointer[stdLogger]

func init() {
	l, _ := New(DefaultConfig())
	defaultLogger.Store(l.(*stdLogger))
}

// SetDefault replaces the process-wide default logger.
func SetDefault(l Logger) {
	if sl, ok := l.(*stdLogger); ok {
		defaultLogger.Store(sl)
	}
}

// Default returns the process-wide default logger.
func Default() Logger {
	return defaultLogger.Load()
}

// Debug logs at debug level using the default logger.
func Debug(msg string, args ...any) { defaultLogger.Load().Debug(msg, args...) }

// Info logs at info level using the default logger.
func Info(msg string, args ...any) { defaultLogger.Load().Info(msg, args...) }

// Warn logs at warn level using the default logger.
func Warn(msg string, args ...any) { defaultLogger.Load().Warn(msg, args...) }

// Error logs at error level using the default logger.
func Error(msg string, args ...any) { defaultLogger.Load().Error(msg, args...) }
