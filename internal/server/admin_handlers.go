package server

import (
	"contentflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// GetCacheStats handles GET /api/cache/stats
func (s *Server) GetCacheStats(c *fiber.Ctx) error {
	return c.JSON(s.caches.Stats())
}

// GetFeatureFlags returns the configured flags and their evaluation for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}
