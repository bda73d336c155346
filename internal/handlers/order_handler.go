package handlers

import (
	"pizzeria/internal/middleware"
	"pizzeria/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type createOrderRequest struct {
	ItemID   int  `json:"itemId"`
	Quantity *int `json:"quantity"`
}

type updateOrderRequest struct {
	ID       int64 `json:"id" validate:"required,gt=0"`
	ItemID   *int  `json:"itemId"`
	Quantity *int  `json:"quantity"`
}

// OrderHandler handles HTTP requests for the cart.
type OrderHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.CartService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/orders", h.HandleCreateOrder)
	router.Get("/orders", h.HandleGetOrder)
	router.Put("/orders", h.HandleUpdateOrder)
	router.Delete("/orders", h.HandleDeleteOrder)
	router.All("/orders", methodNotAllowed)
}

// HandleCreateOrder adds an order to the caller's cart.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	order, err := h.service.Create(c.UserContext(), middleware.Token(c), req.ItemID, req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleGetOrder returns the order named by ?id=.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	order, err := h.service.Get(c.UserContext(), middleware.Token(c), queryOrderID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// HandleUpdateOrder changes the item or quantity of an order.
func (h *OrderHandler) HandleUpdateOrder(c *fiber.Ctx) error {
	var req updateOrderRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, &services.ValidationError{Field: "id", Message: "missing required field"})
	}
	order, err := h.service.Update(c.UserContext(), middleware.Token(c), req.ID, req.ItemID, req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// HandleDeleteOrder removes the order named by ?id=.
func (h *OrderHandler) HandleDeleteOrder(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), middleware.Token(c), queryOrderID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
