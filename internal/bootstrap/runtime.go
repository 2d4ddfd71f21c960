package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"contentflow/internal/cache"
	"contentflow/internal/config"
	"contentflow/internal/database"
	"contentflow/internal/middleware"
	"contentflow/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo writes demo users and content when the database has none.
	// It is ignored outside development.
	SeedDemo bool
	Seed     seed.Options
}

// InitRuntime connects to the database, applies the schema, connects to
// Redis and optionally seeds demo data. The Redis client is nil when Redis
// is not configured or unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := seedDemo(ctx, cfg, db, opts); err != nil {
		return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
	}

	return db, r, nil
}

func seedDemo(ctx context.Context, cfg *config.Config, db *gorm.DB, opts Options) error {
	if !opts.SeedDemo || !strings.EqualFold(cfg.Env, "development") {
		return nil
	}

	var users int64
	if err := db.WithContext(ctx).Table("users").Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		middleware.Logger.Info("demo seed skipped, users already present", slog.Int64("users", users))
		return nil
	}

	seedOpts := opts.Seed
	if seedOpts.Users == 0 {
		seedOpts = seed.DefaultOptions()
	}
	_, err := seed.NewSeeder(db, seedOpts).Run(ctx, seedOpts)
	return err
}
