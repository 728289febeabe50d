package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"method", "path"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Processor webhook events by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	orderStatusWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_writes_total",
			Help: "Authoritative order status writes by status and result",
		},
		[]string{"status", "result"},
	)
)

// Middleware records request count and latency keyed by the matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		httpRequests.WithLabelValues(c.Method(), path, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(c.Method(), path).Observe(float64(time.Since(start).Milliseconds()))
		return err
	}
}

// Handler exposes the default registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// WebhookEvent counts one processed webhook delivery.
func WebhookEvent(eventType, outcome string) {
	webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// StatusWrite counts one authoritative order status write.
func StatusWrite(status string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	orderStatusWrites.WithLabelValues(status, result).Inc()
}
