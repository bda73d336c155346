package handlers

import (
	"pizzeria/internal/middleware"
	"pizzeria/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles HTTP requests for user accounts.
type UserHandler struct {
	service *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// RegisterRoutes registers the user routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/users", h.HandleSignup)
	router.Get("/users", h.HandleGetUser)
	router.Put("/users", h.HandleUpdateUser)
	router.Delete("/users", h.HandleDeleteUser)
	router.All("/users", methodNotAllowed)
}

// HandleSignup creates an account.
func (h *UserHandler) HandleSignup(c *fiber.Ctx) error {
	var req services.SignupRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	user, err := h.service.Signup(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// HandleGetUser returns the account named by ?email=.
func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	user, err := h.service.Get(c.UserContext(), middleware.Token(c), c.Query("email"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleUpdateUser edits the profile named by the body's email.
func (h *UserHandler) HandleUpdateUser(c *fiber.Ctx) error {
	var upd services.ProfileUpdate
	if err := parseBody(c, &upd); err != nil {
		return respondError(c, err)
	}
	user, err := h.service.Update(c.UserContext(), middleware.Token(c), upd)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleDeleteUser removes the account named by ?email= and its orders.
func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), middleware.Token(c), c.Query("email")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
