package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const tokenLocal = "token"

// ExtractToken stores the bearer token of the request in the Fiber context.
// The token is read from the "token" header, falling back to
// "Authorization: Bearer <token>". Verification is left to the services so
// that each operation can apply its own ownership rule.
func ExtractToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Get("token"))
		if token == "" {
			// Expected format: "Bearer <token>"
			parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				token = strings.TrimSpace(parts[1])
			}
		}
		c.Locals(tokenLocal, token)
		return c.Next()
	}
}

// Token returns the token stored by ExtractToken, or "".
func Token(c *fiber.Ctx) string {
	token, _ := c.Locals(tokenLocal).(string)
	return token
}
