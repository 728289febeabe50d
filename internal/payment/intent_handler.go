package payment

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/rosilias-store/internal/logging"
	"github.com/wichananm65/rosilias-store/internal/order"
)

// RefRecorder stores the processor payment id on an order.
type RefRecorder interface {
	AttachPaymentRef(ctx context.Context, id int64, ref string) (order.Order, error)
}

type IntentHandler struct {
	secretKey       string
	processor       Processor
	refs            RefRecorder
	defaultCurrency string
}

func NewIntentHandler(secretKey string, p Processor, refs RefRecorder, defaultCurrency string) *IntentHandler {
	if defaultCurrency == "" {
		defaultCurrency = order.DefaultCurrency
	}
	return &IntentHandler{secretKey: secretKey, processor: p, refs: refs, defaultCurrency: defaultCurrency}
}

func (h *IntentHandler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/create-payment-intent", h.createIntent)
}

// createIntentRequest accepts orderId as a JSON number or numeric string.
type createIntentRequest struct {
	OrderID     flexID `json:"orderId"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	*f = flexID(strings.Trim(string(b), `"`))
	if *f == "null" {
		*f = ""
	}
	return nil
}

func (h *IntentHandler) createIntent(c *fiber.Ctx) error {
	if err := CheckSecretKey(h.secretKey); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Server misconfigured: STRIPE_SECRET_KEY must start with sk_",
			"hint":  fiber.Map{"hasVar": h.secretKey != "", "prefix": keyPrefix(h.secretKey)},
		})
	}

	req := new(createIntentRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
	}
	orderID, err := strconv.ParseInt(string(req.OrderID), 10, 64)
	if err != nil || orderID <= 0 || req.AmountCents <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "orderId and amount_cents are required"})
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = h.defaultCurrency
	}

	log := logging.From(c).With("order_id", orderID)
	intent, err := h.processor.CreateIntent(c.UserContext(), IntentRequest{
		OrderID:     orderID,
		AmountCents: req.AmountCents,
		Currency:    currency,
	})
	if err != nil {
		log.Error("create payment intent failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if h.refs != nil {
		if _, err := h.refs.AttachPaymentRef(c.UserContext(), orderID, intent.ID); err != nil {
			log.Warn("payment ref not recorded", "payment_ref", intent.ID, "error", err)
		}
	}
	log.Info("payment intent created", "payment_ref", intent.ID, "amount_cents", req.AmountCents, "currency", currency)
	return c.JSON(fiber.Map{"clientSecret": intent.ClientSecret})
}
