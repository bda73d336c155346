package handlers

import (
	"pizzeria/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type renewRequest struct {
	ID     string `json:"id" validate:"required"`
	Extend bool   `json:"extend"`
}

// TokenHandler handles HTTP requests for bearer tokens.
type TokenHandler struct {
	service  *services.TokenService
	validate *validator.Validate
	login    fiber.Handler
}

// NewTokenHandler creates a new TokenHandler. loginLimit, when not nil, runs
// in front of token issuance.
func NewTokenHandler(service *services.TokenService, loginLimit fiber.Handler) *TokenHandler {
	return &TokenHandler{
		service:  service,
		validate: validator.New(),
		login:    loginLimit,
	}
}

// RegisterRoutes registers the token routes with the Fiber app.
func (h *TokenHandler) RegisterRoutes(router fiber.Router) {
	if h.login != nil {
		router.Post("/tokens", h.login, h.HandleIssue)
	} else {
		router.Post("/tokens", h.HandleIssue)
	}
	router.Get("/tokens", h.HandleGet)
	router.Put("/tokens", h.HandleRenew)
	router.Delete("/tokens", h.HandleRevoke)
	router.All("/tokens", methodNotAllowed)
}

// HandleIssue logs a user in.
func (h *TokenHandler) HandleIssue(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, &services.ValidationError{Message: "email and password are required"})
	}
	token, err := h.service.Issue(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(token)
}

// HandleGet returns the token named by ?id=, expired or not.
func (h *TokenHandler) HandleGet(c *fiber.Ctx) error {
	token, err := h.service.Get(c.UserContext(), c.Query("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(token)
}

// HandleRenew extends a valid token. The body must carry extend: true.
func (h *TokenHandler) HandleRenew(c *fiber.Ctx) error {
	var req renewRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, &services.ValidationError{Field: "id", Message: "missing required field"})
	}
	if !req.Extend {
		return respondError(c, &services.ValidationError{Field: "extend", Message: "must be true"})
	}
	token, err := h.service.Renew(c.UserContext(), req.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(token)
}

// HandleRevoke logs out by deleting the token named by ?id=.
func (h *TokenHandler) HandleRevoke(c *fiber.Ctx) error {
	if err := h.service.Revoke(c.UserContext(), c.Query("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
