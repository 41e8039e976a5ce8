package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/composedeck/backend/internal/config"
	"github.com/gofiber/fiber/v2"
)

// AdminAuth accepts the admin key as X-Admin-Token or a bearer token. An
// empty key disables the check.
func AdminAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := cfg.Auth.AdminAPIKey
		if apiKey == "" {
			return c.Next()
		}

		headerToken := c.Get("X-Admin-Token")
		if headerToken == "" {
			headerToken, _ = strings.CutPrefix(c.Get("Authorization"), "Bearer ")
		}

		if subtle.ConstantTimeCompare([]byte(headerToken), []byte(apiKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		return c.Next()
	}
}
