package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_ExposesRequestCounter(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/things/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/metrics", Handler())

	for i := 0; i < 3; i++ {
		res, err := app.Test(httptest.NewRequest("GET", "/things/7", nil))
		if err != nil {
			t.Fatal(err)
		}
		if res.StatusCode != fiber.StatusNoContent {
			t.Fatalf("unexpected status %d", res.StatusCode)
		}
	}

	res, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(res.Body)
	out := string(body)
	if !strings.Contains(out, "http_requests_total") || !strings.Contains(out, `status="204"`) {
		t.Fatalf("metrics output missing request counter: %s", out)
	}
}

func TestWebhookAndStatusCounters(t *testing.T) {
	before := testutil.ToFloat64(webhookEvents.WithLabelValues("payment_intent.succeeded", "applied"))
	WebhookEvent("payment_intent.succeeded", "applied")
	if got := testutil.ToFloat64(webhookEvents.WithLabelValues("payment_intent.succeeded", "applied")); got-before != 1 {
		t.Fatalf("webhook counter did not increase")
	}

	beforeErr := testutil.ToFloat64(orderStatusWrites.WithLabelValues("paid", "error"))
	StatusWrite("paid", io.EOF)
	if got := testutil.ToFloat64(orderStatusWrites.WithLabelValues("paid", "error")); got-beforeErr != 1 {
		t.Fatalf("status write error counter did not increase")
	}
}
