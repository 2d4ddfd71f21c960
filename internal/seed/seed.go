// Package seed creates demo users and content items for local development
// and tests.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"contentflow/internal/middleware"
	"contentflow/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options controls how much data the Seeder writes.
type Options struct {
	Users        int
	ItemsPerUser int
	// Clean removes existing content and users before seeding.
	Clean bool
	// RandSeed makes generated data reproducible; zero uses the clock.
	RandSeed int64
	// Horizon is how far ahead scheduled items may fall.
	Horizon time.Duration
}

// DefaultOptions seeds three users with a dozen items each.
func DefaultOptions() Options {
	return Options{Users: 3, ItemsPerUser: 12, Horizon: 30 * 24 * time.Hour}
}

// Seeder writes generated rows through db.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(opts.RandSeed, opts.Horizon)}
}

// Result summarizes a seeding run.
type Result struct {
	Users []models.User
	Items int
}

// ClearAll deletes every content item and user.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ContentItem{}).Error; err != nil {
			return fmt.Errorf("clear content items: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		return nil
	})
}

// Run seeds opts.Users users, each owning opts.ItemsPerUser items.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := 0; i < opts.Users; i++ {
			user := s.factory.User()
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("create user %s: %w", user.Email, err)
			}
			res.Users = append(res.Users, user)

			if opts.ItemsPerUser <= 0 {
				continue
			}
			items := s.factory.Items(user.ID, opts.ItemsPerUser)
			if err := tx.CreateInBatches(&items, 100).Error; err != nil {
				return fmt.Errorf("create items for %s: %w", user.ID, err)
			}
			res.Items += len(items)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.Info("seed complete",
		slog.Int("users", len(res.Users)),
		slog.Int("items", res.Items))
	return res, nil
}

// SeedUser adds n items for userID, creating the user first when it does
// not exist yet. Use it to fill the board of a real identity-provider account.
func (s *Seeder) SeedUser(ctx context.Context, userID string, n int) (int, error) {
	user := s.factory.User(func(u *models.User) { u.ID = userID })
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userID).FirstOrCreate(&user).Error; err != nil {
			return fmt.Errorf("ensure user %s: %w", userID, err)
		}
		if n <= 0 {
			return nil
		}
		items := s.factory.Items(userID, n)
		return tx.CreateInBatches(&items, 100).Error
	})
	if err != nil {
		return 0, err
	}
	middleware.Logger.Info("seeded user board", slog.String("user_id", userID), slog.Int("items", n))
	return max(n, 0), nil
}

// Factory builds unsaved users and content items.
type Factory struct {
	faker   *gofakeit.Faker
	now     func() time.Time
	horizon time.Duration
}

// NewFactory returns a Factory seeded with randSeed (0 uses the clock).
func NewFactory(randSeed int64, horizon time.Duration) *Factory {
	if horizon <= 0 {
		horizon = 30 * 24 * time.Hour
	}
	return &Factory{faker: gofakeit.New(randSeed), now: time.Now, horizon: horizon}
}

// User returns a user with an identity-provider style id.
func (f *Factory) User(overrides ...func(*models.User)) models.User {
	first, last := f.faker.FirstName(), f.faker.LastName()
	avatar := fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID())
	user := models.User{
		ID:              "user_" + strings.ReplaceAll(f.faker.UUID(), "-", "")[:24],
		Email:           strings.ToLower(fmt.Sprintf("%s.%s.%d@example.com", first, last, f.faker.Number(100, 999))),
		FirstName:       &first,
		LastName:        &last,
		ProfileImageURL: &avatar,
	}
	for _, o := range overrides {
		o(&user)
	}
	return user
}

// Items returns n items for userID spread across every status and stage.
// Scheduled and Published items get a ScheduledAt inside the horizon.
func (f *Factory) Items(userID string, n int) []models.ContentItem {
	items := make([]models.ContentItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, f.Item(userID, models.Statuses[i%len(models.Statuses)]))
	}
	return items
}

// Item returns one item in the given status.
func (f *Factory) Item(userID string, status models.ContentStatus) models.ContentItem {
	brief := f.faker.Paragraph(1, 2, 12, " ")
	item := models.ContentItem{
		UserID:      userID,
		Title:       strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 7)), "."),
		Brief:       &brief,
		Status:      status,
		KanbanStage: stageFor(status),
		Platform:    models.Platforms[f.faker.Number(0, len(models.Platforms)-1)],
	}

	now := f.now()
	switch status {
	case models.StatusScheduled:
		at := now.Add(time.Duration(f.faker.Int64()%int64(f.horizon))).Truncate(time.Minute)
		if at.Before(now) {
			at = at.Add(f.horizon)
		}
		item.ScheduledAt = &at
	case models.StatusPublished, models.StatusRepurposed:
		at := now.Add(-time.Duration(f.faker.Number(1, 14)) * 24 * time.Hour).Truncate(time.Minute)
		item.ScheduledAt = &at
	}

	if f.faker.Bool() {
		item.Intelligence = models.NewIntelligence(f.intelligence())
	}
	return item
}

func (f *Factory) intelligence() models.Intelligence {
	reach := f.faker.Number(500, 50000)
	return models.Intelligence{
		Purpose:        f.faker.Sentence(6),
		TargetAudience: f.faker.JobTitle() + "s",
		Keywords:       []string{f.faker.BuzzWord(), f.faker.BuzzWord()},
		Hashtags:       []string{"#" + strings.ToLower(f.faker.BuzzWord())},
		CTA:            f.faker.HipsterSentence(4),
		MetricsTarget:  &models.MetricsTarget{Reach: &reach},
	}
}

func stageFor(status models.ContentStatus) models.KanbanStage {
	switch status {
	case models.StatusDraft:
		return models.StageCreation
	case models.StatusReview, models.StatusScheduled:
		return models.StageCuration
	default:
		return models.StageConversation
	}
}
