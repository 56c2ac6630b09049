package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/newsbrief-ai/newsbrief/internal/logger"
)

// AdminOnly guards the admin endpoints with a shared API key read from
// the X-API-Key header. An empty configured key locks the group
// entirely; running without a key is a deployment mistake, not an open
// door.
func AdminOnly(adminKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-API-Key")
		if key == "" {
			logger.Get().Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("admin request without api key")

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "API key is required",
			})
		}

		if adminKey == "" || key != adminKey {
			logger.Get().Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("admin request with invalid api key")

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}

		return c.Next()
	}
}
