package server

import (
	"errors"
	"log/slog"

	"contentflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetCurrentUser handles GET /api/auth/user. First-time users are
// provisioned from the identity provider.
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	userID, err := s.currentUserID(c)
	if err != nil {
		return nil
	}

	user, err := s.userService.Current(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(user)
}

// Logout handles POST /api/logout. The identity provider owns the session;
// this drops the cached profile and blacklists the token when Redis is up.
func (s *Server) Logout(c *fiber.Ctx) error {
	userID, err := s.currentUserID(c)
	if err != nil {
		return nil
	}

	s.userService.Logout(userID)

	if claims, ok := middleware.SessionClaims(c); ok {
		if err := middleware.RevokeSession(c.UserContext(), s.redis, claims); err != nil && !errors.Is(err, middleware.ErrNoRedis) {
			middleware.Logger.WarnContext(c.UserContext(), "failed to revoke session token", slog.String("error", err.Error()))
		}
	}

	return c.JSON(fiber.Map{
		"message": "Logout successful. Please sign out on the client.",
	})
}
