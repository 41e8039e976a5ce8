package middleware

import (
	"errors"

	"github.com/composedeck/backend/internal/infrastructure/logger"
	"github.com/composedeck/backend/internal/transport/http/dto"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders unhandled errors as JSON. 404 and 408 are logged at
// warn level.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}

		fields := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", code,
			"error", err.Error(),
			"request_id", RequestIDFrom(c),
		}
		if code == fiber.StatusRequestTimeout || code == fiber.StatusNotFound {
			log.Warnw("request_failed", fields...)
		} else {
			log.Errorw("request_error", fields...)
		}

		return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error()})
	}
}
