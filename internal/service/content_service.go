// Package service holds the business logic between HTTP handlers and repositories.
package service

import (
	"context"
	"log/slog"

	"contentflow/internal/cache"
	"contentflow/internal/middleware"
	"contentflow/internal/models"
	"contentflow/internal/repository"
	"contentflow/internal/validation"
)

// ContentService is the single authority for reading and writing content
// items. Lists are invalidated on every write; single items are overwritten
// on update and dropped on delete.
type ContentService struct {
	repo  repository.ContentRepository
	lists *cache.Store[[]models.ContentItem]
	items *cache.Store[models.ContentItem]
}

func NewContentService(repo repository.ContentRepository, caches *cache.Caches) *ContentService {
	return &ContentService{
		repo:  repo,
		lists: caches.ContentList,
		items: caches.ContentItem,
	}
}

// ListByOwner returns the user's items, newest first.
func (s *ContentService) ListByOwner(ctx context.Context, userID string) ([]models.ContentItem, error) {
	key := cache.UserContentListKey(userID)
	if cached, ok := s.lists.Get(key); ok {
		return cloneItems(cached), nil
	}

	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.lists.Set(key, cloneItems(items))
	for _, item := range items {
		s.items.Set(cache.ContentItemKey(item.ID), item.Clone())
	}
	return items, nil
}

// GetByID returns the item, or nil when it does not exist.
func (s *ContentService) GetByID(ctx context.Context, id int64) (*models.ContentItem, error) {
	key := cache.ContentItemKey(id)
	if cached, ok := s.items.Get(key); ok {
		item := cached.Clone()
		return &item, nil
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	s.items.Set(key, item.Clone())
	return item, nil
}

// GetOwned returns the item when it belongs to userID. Other users' items
// are reported as not found.
func (s *ContentService) GetOwned(ctx context.Context, userID string, id int64) (*models.ContentItem, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.UserID != userID {
		return nil, models.NewNotFoundError("Content item", id)
	}
	return item, nil
}

// Create validates in, stores a new item for userID and drops the owner's
// list entry. The item cache is filled lazily by the next read.
func (s *ContentService) Create(ctx context.Context, userID string, in models.CreateContentInput) (*models.ContentItem, error) {
	if err := validation.ValidateCreate(&in); err != nil {
		return nil, err
	}

	item := &models.ContentItem{
		UserID:      userID,
		Title:       in.Title,
		Brief:       in.Brief,
		Status:      in.Status,
		KanbanStage: in.KanbanStage,
		Platform:    in.Platform,
		ScheduledAt: in.ScheduledAt,
	}
	if in.Intelligence != nil {
		item.Intelligence = models.NewIntelligence(*in.Intelligence)
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}

	s.lists.Delete(cache.UserContentListKey(userID))
	middleware.Logger.InfoContext(ctx, "content created", slog.Int64("content_id", item.ID))
	return item, nil
}

// Update applies a partial change. Absent ids yield a not-found error.
func (s *ContentService) Update(ctx context.Context, id int64, in models.UpdateContentInput) (*models.ContentItem, error) {
	if err := validation.ValidateUpdate(&in); err != nil {
		return nil, err
	}
	item, err := s.repo.Update(ctx, id, in.Updates())
	return s.written(id, item, err)
}

// SyncEventID records the external calendar event for an item.
func (s *ContentService) SyncEventID(ctx context.Context, id int64, eventID *string) (*models.ContentItem, error) {
	item, err := s.repo.SetCalendarEventID(ctx, id, eventID)
	return s.written(id, item, err)
}

// written refreshes the caches after a row update.
func (s *ContentService) written(id int64, item *models.ContentItem, err error) (*models.ContentItem, error) {
	if err != nil {
		return nil, err
	}
	if item == nil {
		s.items.Delete(cache.ContentItemKey(id))
		return nil, models.NewNotFoundError("Content item", id)
	}

	// Owner comes from the stored row, never from the caller.
	s.items.Set(cache.ContentItemKey(id), item.Clone())
	s.lists.Delete(cache.UserContentListKey(item.UserID))
	return item, nil
}

// Delete removes the item. Deleting an absent id is a no-op that reports
// false.
func (s *ContentService) Delete(ctx context.Context, id int64) (bool, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return false, err
	}

	s.items.Delete(cache.ContentItemKey(id))
	s.lists.Delete(cache.UserContentListKey(item.UserID))
	middleware.Logger.InfoContext(ctx, "content deleted", slog.Int64("content_id", id))
	return true, nil
}

func cloneItems(items []models.ContentItem) []models.ContentItem {
	out := make([]models.ContentItem, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}
