package catalog

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/wichananm65/rosilias-store/internal/logging"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterPublicRoutes(app *fiber.App) {
	app.Get("/api/v1/packages", h.listPackages)
	app.Get("/api/v1/packages/:slug", h.getPackage)
}

func (h *Handler) listPackages(c *fiber.Ctx) error {
	pkgs, err := h.service.List(c.UserContext())
	if err != nil {
		logging.From(c).Error("list packages failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "could not load packages"})
	}
	return c.JSON(pkgs)
}

func (h *Handler) getPackage(c *fiber.Ctx) error {
	p, err := h.service.BySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "package not found"})
		}
		logging.From(c).Error("get package failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(p)
}
