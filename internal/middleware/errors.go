package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/homefixer/homefixer/internal/apperr"
)

// ErrorHandler renders errors as {"detail": ...} with the status derived from
// their apperr kind. Server faults are logged; their text never reaches the
// client.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"detail": fe.Message})
		}

		status := apperr.Status(err)
		if status >= http.StatusInternalServerError && logger != nil {
			reqID, _ := c.Locals(requestIDHeader).(string)
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", reqID),
				slog.Any("error", err),
			)
		}
		return c.Status(status).JSON(fiber.Map{"detail": apperr.Detail(err)})
	}
}
