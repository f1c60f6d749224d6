package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

var (
	disabled atomic.Bool

	mu     sync.RWMutex
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// Disable turns off all logging
func Disable() {
	disabled.Store(true)
}

// Enable turns logging back on
func Enable() {
	disabled.Store(false)
}

// Enabled reports whether logging is on.
func Enabled() bool {
	return !disabled.Load()
}

// SetOutput replaces the handler. verbose lowers the level to debug.
func SetOutput(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Info logs an info message
func Info(msg string, args ...any) {
	if Enabled() {
		current().Info(msg, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	if Enabled() {
		current().Warn(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...any) {
	if Enabled() {
		current().Error(msg, args...)
	}
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	if Enabled() {
		current().Debug(msg, args...)
	}
}

// Component returns a logger tagged with a component attribute. The returned
// logger honours Disable/Enable.
func Component(name string) *slog.Logger {
	return slog.New(&gate{}).With("component", name)
}

// gate forwards to the package logger unless logging is disabled.
type gate struct {
	attrs []slog.Attr
	group string
}

func (g *gate) Enabled(ctx context.Context, level slog.Level) bool {
	return Enabled() && current().Handler().Enabled(ctx, level)
}

func (g *gate) Handle(ctx context.Context, r slog.Record) error {
	h := current().Handler()
	if g.group != "" {
		h = h.WithGroup(g.group)
	}
	if len(g.attrs) > 0 {
		h = h.WithAttrs(g.attrs)
	}
	return h.Handle(ctx, r)
}

func (g *gate) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &gate{group: g.group}
	next.attrs = append(append(next.attrs, g.attrs...), attrs...)
	return next
}

func (g *gate) WithGroup(name string) slog.Handler {
	return &gate{attrs: g.attrs, group: name}
}
