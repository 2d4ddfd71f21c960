package cache

import (
	"cmp"
	"context"
	"log/slog"
	"time"

	"contentflow/internal/config"
	"contentflow/internal/middleware"
	"contentflow/internal/models"
)

// Caches bundles the three process-local stores the services read through.
type Caches struct {
	User        *Store[models.User]
	ContentList *Store[[]models.ContentItem]
	ContentItem *Store[models.ContentItem]
}

// Stock sizes and TTLs, used for any cache setting left zero in the config.
const (
	DefaultUserSize = 500
	DefaultUserTTL  = 10 * time.Minute
	DefaultListSize = 200
	DefaultListTTL  = 2 * time.Minute
	DefaultItemSize = 1000
	DefaultItemTTL  = 5 * time.Minute
)

// NewCaches builds the stores with the sizes and TTLs from cfg.
func NewCaches(cfg *config.Config, opts ...Option) *Caches {
	return &Caches{
		User: New[models.User]("user",
			cmp.Or(cfg.CacheUserSize, DefaultUserSize), cmp.Or(cfg.CacheUserTTL, DefaultUserTTL), opts...),
		ContentList: New[[]models.ContentItem]("content_list",
			cmp.Or(cfg.CacheListSize, DefaultListSize), cmp.Or(cfg.CacheListTTL, DefaultListTTL), opts...),
		ContentItem: New[models.ContentItem]("content_item",
			cmp.Or(cfg.CacheItemSize, DefaultItemSize), cmp.Or(cfg.CacheItemTTL, DefaultItemTTL), opts...),
	}
}

// Stats returns a snapshot of every store keyed by domain.
func (c *Caches) Stats() map[string]Stats {
	return map[string]Stats{
		"user":    c.User.Stats(),
		"content": c.ContentList.Stats(),
		"item":    c.ContentItem.Stats(),
	}
}

// Clear empties every store.
func (c *Caches) Clear() {
	c.User.Clear()
	c.ContentList.Clear()
	c.ContentItem.Clear()
}

// Report logs store statistics every interval until ctx is cancelled.
func (c *Caches) Report(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.logStats(ctx)
		}
	}
}

func (c *Caches) logStats(ctx context.Context) {
	for name, st := range c.Stats() {
		middleware.Logger.InfoContext(ctx, "cache stats",
			slog.String("cache", name),
			slog.Int("size", st.Size),
			slog.Int("max_size", st.Capacity),
			slog.Uint64("hits", st.Hits),
			slog.Uint64("misses", st.Misses),
			slog.Uint64("evictions", st.Evictions),
			slog.Float64("hit_rate", st.HitRate),
			slog.Float64("approx_hit_rate", st.ApproxHitRate),
		)
	}
}
