package server

import (
	"log/slog"

	"contentflow/internal/middleware"
	"contentflow/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GoogleAuth handles GET /api/google/auth
func (s *Server) GoogleAuth(c *fiber.Ctx) error {
	userID, err := s.currentUserID(c)
	if err != nil {
		return nil
	}

	authURL, err := s.calendarService.AuthURL(userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"authUrl": authURL})
}

// GoogleCallback handles GET /api/google/callback. The browser is sent back
// to the calendar page with a flag describing the outcome.
func (s *Server) GoogleCallback(c *fiber.Ctx) error {
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Missing authorization code or state")
	}

	userID, err := s.calendarService.HandleCallback(c.UserContext(), code, state)
	if err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "error handling OAuth callback",
			slog.String("error", err.Error()))
		if models.StatusFor(err) >= fiber.StatusInternalServerError {
			s.captureError(c, err)
		}
		return c.Redirect(s.calendarPage("google_error=true"), fiber.StatusFound)
	}

	middleware.Logger.InfoContext(c.UserContext(), "google calendar connected", slog.String("user_id", userID))
	return c.Redirect(s.calendarPage("google_connected=true"), fiber.StatusFound)
}

func (s *Server) calendarPage(query string) string {
	return s.config.AppBaseURL + "/calendar?" + query
}

// GoogleSync handles POST /api/google/sync/:id
func (s *Server) GoogleSync(c *fiber.Ctx) error {
	userID, err := s.currentUserID(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	eventID, err := s.calendarService.Sync(c.UserContext(), userID, id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "eventId": eventID})
}

// GoogleDisconnect handles DELETE /api/google/disconnect
func (s *Server) GoogleDisconnect(c *fiber.Ctx) error {
	userID, err := s.currentUserID(c)
	if err != nil {
		return nil
	}

	if err := s.calendarService.Disconnect(c.UserContext(), userID); err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "error disconnecting calendar", slog.String("error", err.Error()))
		s.captureError(c, err)
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			&models.AppError{Code: models.CodeInternal, Message: "Failed to disconnect Google Calendar", Err: err})
	}
	return c.JSON(fiber.Map{"success": true})
}
