package logging

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// Middleware logs one line per request and injects a request-scoped logger
// carrying req_id. Request bodies are not logged.
func Middleware(l *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)

		rl := Or(l).With(
			"req_id", reqID,
			"method", c.Method(),
			"path", c.Path(),
			"remote", c.IP(),
		)
		With(c, rl)
		c.SetUserContext(WithCtx(c.UserContext(), rl))

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = http.StatusInternalServerError
		}

		attrs := []any{
			"status", status,
			"dur_ms", time.Since(start).Milliseconds(),
			"resp_bytes", len(c.Response().Body()),
		}
		if err != nil {
			attrs = append(attrs, "error", err.Error())
		}
		if status >= http.StatusBadRequest {
			rl.Error("http_request", attrs...)
		} else {
			rl.Info("http_request", attrs...)
		}
		return err
	}
}

// Recover turns panics into 500s and logs them with the request logger. It
// must be registered after Middleware so the panic also shows up in the
// request's access line.
func Recover() fiber.Handler {
	return recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			From(c).Error("panic recovered", "panic", e, "stack", string(debug.Stack()))
		},
	})
}
