package handlers

import (
	"pizzeria/internal/middleware"
	"pizzeria/internal/services"

	"github.com/gofiber/fiber/v2"
)

type purchaseRequest struct {
	ID int64 `json:"id"`
}

// PurchaseHandler handles order settlement.
type PurchaseHandler struct {
	service *services.PurchaseService
}

// NewPurchaseHandler creates a new PurchaseHandler.
func NewPurchaseHandler(service *services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{service: service}
}

// RegisterRoutes registers the purchase route with the Fiber app.
func (h *PurchaseHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/purchase", h.HandlePurchase)
	router.All("/purchase", methodNotAllowed)
}

// HandlePurchase pays for the order named by the body's id.
func (h *PurchaseHandler) HandlePurchase(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	receipt, err := h.service.Settle(c.UserContext(), middleware.Token(c), req.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Your payment was received.",
		"receipt": receipt,
	})
}
