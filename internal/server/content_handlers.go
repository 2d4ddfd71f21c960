package server

import (
	"contentflow/internal/featureflags"
	"contentflow/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListContent handles GET /api/content
func (s *Server) ListContent(c *fiber.Ctx) error {
	userID, err := s.currentUserID(c)
	if err != nil {
		return nil
	}

	items, err := s.contentService.ListByOwner(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(items)
}

// GetContent handles GET /api/content/:id
func (s *Server) GetContent(c *fiber.Ctx) error {
	userID, err := s.currentUserID(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	item, err := s.contentService.GetOwned(c.UserContext(), userID, id)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(item)
}

// CreateContent handles POST /api/content
func (s *Server) CreateContent(c *fiber.Ctx) error {
	userID, err := s.currentUserID(c)
	if err != nil {
		return nil
	}

	var in models.CreateContentInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	item, err := s.contentService.Create(c.UserContext(), userID, in)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// UpdateContent handles PATCH /api/content/:id
func (s *Server) UpdateContent(c *fiber.Ctx) error {
	userID, err := s.currentUserID(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var in models.UpdateContentInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if _, err := s.contentService.GetOwned(c.UserContext(), userID, id); err != nil {
		return s.respondError(c, err)
	}

	item, err := s.contentService.Update(c.UserContext(), id, in)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(item)
}

// DeleteContent handles DELETE /api/content/:id. A linked calendar event is
// removed best-effort before the item itself.
func (s *Server) DeleteContent(c *fiber.Ctx) error {
	userID, err := s.currentUserID(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	item, err := s.contentService.GetOwned(c.UserContext(), userID, id)
	if err != nil {
		return s.respondError(c, err)
	}

	if s.featureFlags.Enabled(featureflags.GoogleCalendar, userID) {
		s.calendarService.DeleteEvent(c.UserContext(), userID, item)
	}

	if _, err := s.contentService.Delete(c.UserContext(), id); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
