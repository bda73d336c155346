package middleware

import (
	"time"

	"pizzeria/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics records the count and latency of every request by route pattern.
func Metrics(m *metrics.Collectors) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		m.ObserveHTTP(c.Method(), route, status, time.Since(start))
		return err
	}
}
