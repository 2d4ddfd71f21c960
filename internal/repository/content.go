// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"contentflow/internal/models"
	"contentflow/internal/observability"

	"gorm.io/gorm"
)

const contentTable = "content_items"

// ContentRepository defines persistence operations for content items.
type ContentRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.ContentItem, error)
	// GetByID returns nil, nil when no row has the id.
	GetByID(ctx context.Context, id int64) (*models.ContentItem, error)
	Create(ctx context.Context, item *models.ContentItem) error
	// Update applies column updates and returns the stored row, or nil, nil
	// when no row has the id.
	Update(ctx context.Context, id int64, updates map[string]any) (*models.ContentItem, error)
	Delete(ctx context.Context, id int64) error
	SetCalendarEventID(ctx context.Context, id int64, eventID *string) (*models.ContentItem, error)
}

type contentRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewContentRepository returns a GORM-backed ContentRepository.
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db, now: time.Now}
}

func (r *contentRepository) ListByUser(ctx context.Context, userID string) (items []models.ContentItem, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "ListByUser", contentTable)
	defer func() { observability.EndSpan(span, err) }()
	defer observability.TrackQuery("select", contentTable)()

	items = make([]models.ContentItem, 0)
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

func (r *contentRepository) GetByID(ctx context.Context, id int64) (item *models.ContentItem, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "GetByID", contentTable)
	defer func() { observability.EndSpan(span, err) }()
	defer observability.TrackQuery("select", contentTable)()

	return r.find(r.db.WithContext(ctx), id)
}

func (r *contentRepository) find(db *gorm.DB, id int64) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &item, nil
}

func (r *contentRepository) Create(ctx context.Context, item *models.ContentItem) (err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Create", contentTable)
	defer func() { observability.EndSpan(span, err) }()
	defer observability.TrackQuery("insert", contentTable)()

	now := r.now()
	item.CreatedAt = now
	item.UpdatedAt = now
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Update never moves updated_at backwards, even when the clock does.
func (r *contentRepository) Update(ctx context.Context, id int64, updates map[string]any) (item *models.ContentItem, err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Update", contentTable)
	defer func() { observability.EndSpan(span, err) }()
	defer observability.TrackQuery("update", contentTable)()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := r.find(tx, id)
		if err != nil || existing == nil {
			return err
		}

		columns := make(map[string]any, len(updates)+1)
		for k, v := range updates {
			columns[k] = v
		}
		columns["updated_at"] = later(r.now(), existing.UpdatedAt)

		if err := tx.Model(&models.ContentItem{}).Where("id = ?", id).Updates(columns).Error; err != nil {
			return models.NewInternalError(err)
		}
		item, err = r.find(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *contentRepository) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := observability.StartRepositorySpan(ctx, "Delete", contentTable)
	defer func() { observability.EndSpan(span, err) }()
	defer observability.TrackQuery("delete", contentTable)()

	if err := r.db.WithContext(ctx).Delete(&models.ContentItem{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *contentRepository) SetCalendarEventID(ctx context.Context, id int64, eventID *string) (*models.ContentItem, error) {
	return r.Update(ctx, id, map[string]any{"google_calendar_event_id": eventID})
}

func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
