package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"contentflow/internal/database"
	"contentflow/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// steppedClock returns t0, t0+1s, t0+2s, ...
func steppedClock(t0 time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n-1) * time.Second)
	}
}

func newItem(userID, title string) *models.ContentItem {
	return &models.ContentItem{
		UserID:      userID,
		Title:       title,
		Status:      models.StatusDraft,
		KanbanStage: models.StageCreation,
		Platform:    "LinkedIn",
	}
}

func TestContentRepository_CreateAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContentRepository(db).(*contentRepository)
	repo.now = steppedClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	first := newItem("u1", "First")
	second := newItem("u1", "Second")
	other := newItem("u2", "Other")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, other))
	assert.NotZero(t, first.ID)

	items, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Second", items[0].Title)
	assert.Equal(t, "First", items[1].Title)

	empty, err := repo.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestContentRepository_GetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	item := newItem("u1", "Hello")
	item.Intelligence = models.NewIntelligence(models.Intelligence{Keywords: []string{"go", "fiber"}})
	require.NoError(t, repo.Create(ctx, item))

	got, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Hello", got.Title)
	require.NotNil(t, got.IntelligenceData())
	assert.Equal(t, []string{"go", "fiber"}, got.IntelligenceData().Keywords)

	missing, err := repo.GetByID(ctx, 9999)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestContentRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	brief := "draft brief"
	item := newItem("u1", "Before")
	item.Brief = &brief
	require.NoError(t, repo.Create(ctx, item))

	updated, err := repo.Update(ctx, item.ID, map[string]any{
		"title":  "After",
		"status": models.StatusReview,
		"brief":  (*string)(nil),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "After", updated.Title)
	assert.Equal(t, models.StatusReview, updated.Status)
	assert.Nil(t, updated.Brief)
	assert.Equal(t, "u1", updated.UserID)

	missing, err := repo.Update(ctx, 9999, map[string]any{"title": "x"})
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestContentRepository_UpdatedAtIsMonotonic(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContentRepository(db).(*contentRepository)
	ctx := context.Background()

	t0 := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return t0 }
	item := newItem("u1", "Clock")
	require.NoError(t, repo.Create(ctx, item))

	repo.now = func() time.Time { return t0.Add(-time.Hour) }
	updated, err := repo.Update(ctx, item.ID, map[string]any{"title": "Skewed"})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.Equal(t0), "updated_at went backwards: %v", updated.UpdatedAt)

	repo.now = func() time.Time { return t0.Add(time.Minute) }
	updated, err = repo.Update(ctx, item.ID, map[string]any{"title": "Later"})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.Equal(t0.Add(time.Minute)))
}

func TestContentRepository_DeleteAndEventID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	item := newItem("u1", "Sync me")
	require.NoError(t, repo.Create(ctx, item))

	eventID := "evt_123"
	synced, err := repo.SetCalendarEventID(ctx, item.ID, &eventID)
	require.NoError(t, err)
	require.NotNil(t, synced.GoogleCalendarEventID)
	assert.Equal(t, "evt_123", *synced.GoogleCalendarEventID)

	require.NoError(t, repo.Delete(ctx, item.ID))
	got, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.NoError(t, repo.Delete(ctx, item.ID))
}

func TestContentRepository_DatabaseErrorIsInternal(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewContentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "content_items" WHERE user_id = $1`)).
		WithArgs("u1").
		WillReturnError(errors.New("connection reset by peer"))

	items, err := repo.ListByUser(context.Background(), "u1")
	assert.Nil(t, items)
	require.Error(t, err)
	assert.Equal(t, 500, models.StatusFor(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := "Ada"
	created, err := repo.Create(ctx, &models.User{ID: "user_1", Email: "ada@example.com", FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", created.Email)

	again, err := repo.Create(ctx, &models.User{ID: "user_1", Email: "ada@example.com"})
	require.NoError(t, err)
	require.NotNil(t, again.FirstName)
	assert.Equal(t, "Ada", *again.FirstName)

	_, err = repo.Create(ctx, &models.User{ID: "user_2", Email: "ada@example.com"})
	assert.True(t, models.IsValidation(err))
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, models.IsNotFound(err))
}

func TestUserRepository_CalendarTokens(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.User{ID: "user_1", Email: "a@example.com"})
	require.NoError(t, err)

	expiry := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	user, err := repo.UpdateCalendarTokens(ctx, "user_1", models.CalendarTokens{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Expiry:       &expiry,
	})
	require.NoError(t, err)
	assert.True(t, user.HasCalendarTokens())
	assert.Equal(t, "refresh-1", *user.GoogleRefreshToken)

	user, err = repo.UpdateCalendarTokens(ctx, "user_1", models.CalendarTokens{AccessToken: "access-2"})
	require.NoError(t, err)
	assert.Equal(t, "access-2", *user.GoogleAccessToken)
	assert.Equal(t, "refresh-1", *user.GoogleRefreshToken)

	user, err = repo.DisconnectCalendar(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, user.GoogleCalendarEnabled)
	assert.Nil(t, user.GoogleAccessToken)
	assert.Nil(t, user.GoogleRefreshToken)

	_, err = repo.DisconnectCalendar(ctx, "missing")
	assert.True(t, models.IsNotFound(err))
}
