package handlers

import (
	"errors"
	"strconv"
	"strings"

	"pizzeria/internal/services"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// respondError maps a service error onto a status code and a JSON body.
func respondError(c *fiber.Ctx, err error) error {
	var (
		validationErr *services.ValidationError
		authErr       *services.AuthError
		notFoundErr   *services.NotFoundError
		capacityErr   *services.CapacityError
		paymentErr    *services.PaymentError
		reconErr      *services.ReconciliationError
		fiberErr      *fiber.Error
	)

	switch {
	case errors.As(err, &validationErr):
		body := fiber.Map{"message": "Validation failed", "error": err.Error()}
		if validationErr.Field != "" {
			body["field"] = validationErr.Field
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.As(err, &authErr):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Not authorized",
			"error":   err.Error(),
			"code":    string(authErr.Reason),
		})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Not found",
			"error":   err.Error(),
		})
	case errors.As(err, &capacityErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Order limit reached",
			"error":   err.Error(),
			"limit":   capacityErr.Limit,
		})
	case errors.As(err, &paymentErr):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"message": "Payment failed",
			"error":   err.Error(),
		})
	case errors.As(err, &reconErr):
		log.WithError(err).WithField("order_id", reconErr.OrderID).Error("reconciliation failed, manual intervention needed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message":  "Order records could not be reconciled",
			"error":    err.Error(),
			"code":     "reconciliation_failed",
			"order_id": reconErr.OrderID,
		})
	case errors.As(err, &fiberErr):
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"message": fiberErr.Message,
		})
	default:
		log.WithError(err).WithField("path", c.Path()).Error("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
			"error":   err.Error(),
		})
	}
}

// methodNotAllowed answers any method a resource does not support.
func methodNotAllowed(c *fiber.Ctx) error {
	return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
		"message": "Method not allowed",
		"error":   c.Method() + " is not supported on " + c.Path(),
	})
}

// parseBody decodes the JSON body into dst, reporting a ValidationError for a
// malformed payload.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return &services.ValidationError{Message: "invalid request body: " + err.Error()}
	}
	return nil
}

// queryOrderID reads the order id from the query string. A missing or
// malformed id comes back as zero and is rejected by the service once the
// token has been checked.
func queryOrderID(c *fiber.Ctx) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Query("id")), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
