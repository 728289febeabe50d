package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

const localsKey = "logger"

var (
	once sync.Once
	base *slog.Logger
)

// Init configures the global logger exactly once. An empty filePath logs to
// stdout only.
func Init(component, filePath, level string) *slog.Logger {
	once.Do(func() {
		var w io.Writer = os.Stdout
		if filePath != "" {
			_ = os.MkdirAll(filepath.Dir(filePath), 0o755)
			rot := &lumberjack.Logger{
				Filename:   filePath,
				MaxSize:    50, // MB
				MaxBackups: 3,
				MaxAge:     7, // days
			}
			w = io.MultiWriter(os.Stdout, rot)
		}

		h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
		base = slog.New(h).With("component", component)
		slog.SetDefault(base)
	})
	return base
}

// ParseLevel maps config strings onto slog levels, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Base returns the global logger, falling back to slog.Default before Init.
func Base() *slog.Logger {
	if base == nil {
		return slog.Default()
	}
	return base
}

// Or returns l, or the global logger when l is nil.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Base()
}

// WithCtx stores a logger in a standard context.
func WithCtx(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromCtx fetches the request-scoped logger from ctx. Without one it returns
// fallback, or the global logger when fallback is nil.
func FromCtx(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return Or(fallback)
}

// With stores the request-scoped logger in the fiber context.
func With(c *fiber.Ctx, l *slog.Logger) {
	c.Locals(localsKey, l)
}

// From returns the request-scoped logger from the fiber context, or the global one.
func From(c *fiber.Ctx) *slog.Logger {
	if l, ok := c.Locals(localsKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return Base()
}
