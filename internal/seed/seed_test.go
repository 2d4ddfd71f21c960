package seed

import (
	"context"
	"testing"
	"time"

	"contentflow/internal/database"
	"contentflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func TestFactory_ItemsCoverEveryStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := NewFactory(42, 30*24*time.Hour)
	f.now = func() time.Time { return now }

	items := f.Items("user_1", 10)
	require.Len(t, items, 10)

	seen := map[models.ContentStatus]bool{}
	for _, item := range items {
		seen[item.Status] = true
		assert.Equal(t, "user_1", item.UserID)
		assert.NotEmpty(t, item.Title)
		assert.True(t, item.KanbanStage.Valid())
		assert.Contains(t, models.Platforms, item.Platform)

		switch item.Status {
		case models.StatusScheduled:
			require.NotNil(t, item.ScheduledAt)
			assert.True(t, item.ScheduledAt.After(now.Add(-time.Minute)))
			assert.True(t, item.ScheduledAt.Before(now.Add(30*24*time.Hour)))
		case models.StatusDraft, models.StatusReview:
			assert.Nil(t, item.ScheduledAt)
		}
	}
	for _, s := range models.Statuses {
		assert.True(t, seen[s], "missing status %s", s)
	}
}

func TestFactory_UserOverrides(t *testing.T) {
	f := NewFactory(7, 0)
	u := f.User(func(u *models.User) { u.Email = "fixed@example.com" })
	assert.Equal(t, "fixed@example.com", u.Email)
	assert.Regexp(t, `^user_[0-9a-f]{24}$`, u.ID)
	require.NotNil(t, u.FirstName)
}

func TestSeeder_RunAndClean(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	opts := Options{Users: 2, ItemsPerUser: 5, RandSeed: 1}

	res, err := NewSeeder(db, opts).Run(ctx, opts)
	require.NoError(t, err)
	assert.Len(t, res.Users, 2)
	assert.Equal(t, 10, res.Items)

	var count int64
	require.NoError(t, db.Model(&models.ContentItem{}).Where("user_id = ?", res.Users[0].ID).Count(&count).Error)
	assert.Equal(t, int64(5), count)

	opts.Clean = true
	opts.Users = 1
	opts.RandSeed = 2
	_, err = NewSeeder(db, opts).Run(ctx, opts)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, db.Model(&models.ContentItem{}).Count(&count).Error)
	assert.Equal(t, int64(5), count)
}

func TestSeeder_SeedUser(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	s := NewSeeder(db, Options{RandSeed: 5})

	n, err := s.SeedUser(ctx, "user_dev", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = s.SeedUser(ctx, "user_dev", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var users, items int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.ContentItem{}).Where("user_id = ?", "user_dev").Count(&items).Error)
	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(6), items)
}
