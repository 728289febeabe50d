package order

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/rosilias-store/internal/logging"
	"github.com/wichananm65/rosilias-store/internal/user"
)

type Handler struct {
	service      *Service
	optionalAuth fiber.Handler
}

type createOrderRequest struct {
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`
}

// NewHandler takes the middleware that resolves an optional bearer token for
// the public routes.
func NewHandler(s *Service, optionalAuth fiber.Handler) *Handler {
	if optionalAuth == nil {
		optionalAuth = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &Handler{service: s, optionalAuth: optionalAuth}
}

// RegisterPublicRoutes registers order creation (guest or signed-in) and the
// status read. Neither accepts a status from the caller.
func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Post("/api/v1/orders", h.optionalAuth, h.createOrder)
	app.Get("/api/v1/orders/:id<int>", h.optionalAuth, h.getOrder)
}

func (h *Handler) RegisterProtectedRoutes(app *fiber.App) {
	app.Get("/api/v1/orders", h.getOrders)
}

func (h *Handler) createOrder(c *fiber.Ctx) error {
	req := new(createOrderRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	var owner *string
	if uid, err := user.GetUserIDFromCtx(c); err == nil {
		owner = &uid
	}

	ord, err := h.service.Create(c.UserContext(), owner, req.TotalCents, req.Currency)
	if err != nil {
		if errors.Is(err, ErrInvalidOrder) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		}
		logging.From(c).Error("create order failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "could not create order"})
	}
	return c.Status(fiber.StatusCreated).JSON(ord)
}

// getOrder serves the authoritative status. Orders owned by a user are only
// visible to that user; guest orders are visible to whoever holds the id.
func (h *Handler) getOrder(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid order id"})
	}

	ord, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	if ord.UserID != nil {
		uid, err := user.GetUserIDFromCtx(c)
		if err != nil || uid != *ord.UserID {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "order not found"})
		}
	}
	return c.JSON(ord)
}

func (h *Handler) getOrders(c *fiber.Ctx) error {
	uid, err := user.GetUserIDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	orders, err := h.service.ListByUser(c.UserContext(), uid)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(orders)
}
