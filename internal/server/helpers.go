package server

import (
	"errors"
	"log/slog"

	"contentflow/internal/middleware"
	"contentflow/internal/models"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive int64.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (int64, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldError(param, "Invalid ID"))
		return 0, errResponseWritten
	}
	return int64(id), nil
}

// currentUserID returns the session subject. AuthRequired guarantees it on
// protected routes; the fallback only guards against misconfigured routing.
func (s *Server) currentUserID(c *fiber.Ctx) (string, error) {
	uid, ok := middleware.UserID(c)
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Unauthorized"))
		return "", errResponseWritten
	}
	return uid, nil
}

// respondError writes err with the status its code maps to. Server-side
// failures are logged and reported to Sentry.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	if status := models.StatusFor(err); status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.String("error", err.Error()))
		s.captureError(c, err)
	}
	return models.RespondWithAppError(c, err)
}

func (s *Server) captureError(c *fiber.Ctx, err error) {
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}
