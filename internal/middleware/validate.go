package middleware

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/newsbrief-ai/newsbrief/internal/logger"
)

var validate = validator.New()

// ParseAndValidate fills dst from the request body and checks its
// validate tags. On failure it writes the error response and returns
// false; the handler should return nil without further work.
func ParseAndValidate(c *fiber.Ctx, dst interface{}) bool {
	if err := c.BodyParser(dst); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"msg":   err.Error(),
		})
		return false
	}

	if err := validate.Struct(dst); err != nil {
		fields := make(map[string]string)
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, ve := range verrs {
				fields[ve.Field()] = ve.Tag()
			}
		}
		_ = c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "Validation failed",
			"fields": fields,
		})
		return false
	}
	return true
}

// ErrorHandler renders uncaught handler errors as JSON with a matching
// status code.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	logger.Get().Error().
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", code).
		Msg("http error")

	return c.Status(code).JSON(fiber.Map{
		"error": http.StatusText(code),
	})
}
