package handlers

import (
	"pizzeria/internal/services"

	"github.com/gofiber/fiber/v2"
)

// MenuHandler serves the catalog.
type MenuHandler struct {
	catalog *services.Catalog
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(catalog *services.Catalog) *MenuHandler {
	return &MenuHandler{catalog: catalog}
}

// RegisterRoutes registers the menu route with the Fiber app.
func (h *MenuHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/menu", h.HandleGetMenu)
	router.All("/menu", methodNotAllowed)
}

// HandleGetMenu returns the menu in load order.
func (h *MenuHandler) HandleGetMenu(c *fiber.Ctx) error {
	return c.JSON(h.catalog.Items())
}
