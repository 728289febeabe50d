package payment

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/rosilias-store/internal/logging"
	"github.com/wichananm65/rosilias-store/internal/metrics"
)

type WebhookHandler struct {
	secretKey  string
	verifier   *StripeVerifier
	reconciler *Reconciler
}

func NewWebhookHandler(secretKey string, verifier *StripeVerifier, reconciler *Reconciler) *WebhookHandler {
	return &WebhookHandler{secretKey: secretKey, verifier: verifier, reconciler: reconciler}
}

func (h *WebhookHandler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/stripe-webhook", h.receive)
}

// receive verifies the raw body before anything is applied. Once verified the
// delivery is always acknowledged with 200.
func (h *WebhookHandler) receive(c *fiber.Ctx) error {
	log := logging.From(c)

	if CheckSecretKey(h.secretKey) != nil {
		log.Error("webhook rejected: STRIPE_SECRET_KEY invalid")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server misconfigured: STRIPE_SECRET_KEY invalid"})
	}
	if !h.verifier.Configured() {
		log.Error("webhook rejected: STRIPE_WEBHOOK_SECRET missing")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server misconfigured: STRIPE_WEBHOOK_SECRET missing"})
	}

	ev, err := h.verifier.Verify(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, ErrBadSignature) {
			metrics.WebhookEvent("unknown", "bad_signature")
			log.Warn("webhook signature failed", "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Webhook Error: " + err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook handler failed"})
	}

	h.reconciler.Handle(c.UserContext(), ev)
	return c.JSON(fiber.Map{"received": true})
}
