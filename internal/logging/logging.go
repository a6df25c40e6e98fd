// Package logging wires structured logging the way the teacher's
// daemon code does it: a thin wrapper struct around a *slog.Logger
// (mirrored on cmd/bd's daemonLogger{logger: ...} shape), writing
// rotated JSON lines via lumberjack so a long-running sync daemon
// doesn't grow its log file without bound.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps a *slog.Logger. Holding a concrete wrapper instead of
// handing out *slog.Logger directly keeps call sites (datastore
// manager, CLI) free to add fields like datastore name consistently.
type Logger struct {
	logger *slog.Logger
}

// Options configures New. Path == "" logs to Fallback instead of
// rotating to disk; with Fallback also nil, output is discarded.
type Options struct {
	Path       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	Fallback   io.Writer
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// New builds a Logger per opts. When opts.Path is set, output rotates
// through lumberjack; otherwise it writes to opts.Fallback, or to
// io.Discard when Fallback is nil.
func New(opts Options) *Logger {
	var w io.Writer
	if opts.Path != "" {
		w = &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    maxOr(opts.MaxSizeMB, 50),
			MaxBackups: maxOr(opts.MaxBackups, 3),
			Compress:   true,
		}
	} else if opts.Fallback != nil {
		w = opts.Fallback
	} else {
		w = io.Discard
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(opts.Level)})
	return &Logger{logger: slog.New(handler)}
}

func maxOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// With returns a Logger that always attaches the given key/value pairs.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// Slog exposes the underlying *slog.Logger for collaborators (like
// fsnotify watch loops) that want to pass it straight to slog's
// package-level helpers.
func (l *Logger) Slog() *slog.Logger { return l.logger }
