// Package logger provides application-wide structured logging on top of
// log/slog, with a package-level singleton in the style of a 12-factor
// service: configure once at process start, then call the package
// functions from anywhere without threading a logger through every call
// site.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
)

var singleton atomic.Pointer[slog.Logger]

func init() {
	singleton.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Options configures the process-wide logger.
type Options struct {
	// Level is the minimum level that will be emitted.
	Level slog.Level
	// JSON selects the JSON handler instead of the default text handler.
	// Production deployments behind log aggregation should set this.
	JSON bool
	// Writer overrides the output destination (default os.Stderr).
	Writer *os.File
}

// Configure installs a new process-wide logger built from opts. Safe to
// call once at startup before any handler begins serving requests.
func Configure(opts Options) {
	w := os.Stderr
	if opts.Writer != nil {
		w = opts.Writer
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, handlerOpts)
	} else {
		h = slog.NewTextHandler(w, handlerOpts)
	}
	singleton.Store(slog.New(h))
}

// L returns the current process-wide logger.
func L() *slog.Logger {
	return singleton.Load()
}

// Debug logs at debug level.
func Debug(msg string) { L().Debug(msg) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { L().Debug(sprintf(format, args...)) }

// Debugw logs a message with structured key/value pairs at debug level.
func Debugw(msg string, kv ...any) { L().Debug(msg, kv...) }

// Info logs at info level.
func Info(msg string) { L().Info(msg) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { L().Info(sprintf(format, args...)) }

// Infow logs a message with structured key/value pairs at info level.
func Infow(msg string, kv ...any) { L().Info(msg, kv...) }

// Warn logs at warn level.
func Warn(msg string) { L().Warn(msg) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { L().Warn(sprintf(format, args...)) }

// Warnw logs a message with structured key/value pairs at warn level.
func Warnw(msg string, kv ...any) { L().Warn(msg, kv...) }

// Error logs at error level.
func Error(msg string) { L().Error(msg) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { L().Error(sprintf(format, args...)) }

// Errorw logs a message with structured key/value pairs at error level.
func Errorw(msg string, kv ...any) { L().Error(msg, kv...) }

// WithContext returns a logger annotated with any fields attached via
// context by middleware (e.g. a request ID), falling back to the
// package logger when none is present.
func WithContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return L()
}

type loggerKey struct{}

// IntoContext attaches l to ctx so WithContext can retrieve it downstream.
func IntoContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
