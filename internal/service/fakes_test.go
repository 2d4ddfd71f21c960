package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"contentflow/internal/cache"
	"contentflow/internal/config"
	"contentflow/internal/models"
)

// newCaches builds stores with the stock sizes and TTLs.
func newCaches() *cache.Caches {
	return cache.NewCaches(&config.Config{})
}

// memContentRepo is an in-memory repository.ContentRepository that counts calls.
type memContentRepo struct {
	mu      sync.Mutex
	rows    map[int64]models.ContentItem
	nextID  int64
	clock   time.Time
	calls   map[string]int
	failErr error
}

func newMemContentRepo() *memContentRepo {
	return &memContentRepo{
		rows:  make(map[int64]models.ContentItem),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		calls: make(map[string]int),
	}
}

func (r *memContentRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memContentRepo) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func (r *memContentRepo) ListByUser(_ context.Context, userID string) ([]models.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["list"]++
	if r.failErr != nil {
		return nil, r.failErr
	}
	out := make([]models.ContentItem, 0)
	for _, row := range r.rows {
		if row.UserID == userID {
			out = append(out, row.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memContentRepo) GetByID(_ context.Context, id int64) (*models.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["get"]++
	if r.failErr != nil {
		return nil, r.failErr
	}
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	out := row.Clone()
	return &out, nil
}

func (r *memContentRepo) Create(_ context.Context, item *models.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["create"]++
	if r.failErr != nil {
		return r.failErr
	}
	r.nextID++
	item.ID = r.nextID
	now := r.tick()
	item.CreatedAt, item.UpdatedAt = now, now
	r.rows[item.ID] = item.Clone()
	return nil
}

func (r *memContentRepo) Update(_ context.Context, id int64, updates map[string]any) (*models.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["update"]++
	if r.failErr != nil {
		return nil, r.failErr
	}
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	for k, v := range updates {
		switch k {
		case "title":
			row.Title = v.(string)
		case "status":
			row.Status = v.(models.ContentStatus)
		case "kanban_stage":
			row.KanbanStage = v.(models.KanbanStage)
		case "platform":
			row.Platform = v.(string)
		case "brief":
			row.Brief = v.(*string)
		case "scheduled_at":
			row.ScheduledAt = v.(*time.Time)
		case "google_calendar_event_id":
			row.GoogleCalendarEventID = v.(*string)
		}
	}
	row.UpdatedAt = r.tick()
	r.rows[id] = row
	out := row.Clone()
	return &out, nil
}

func (r *memContentRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["delete"]++
	if r.failErr != nil {
		return r.failErr
	}
	delete(r.rows, id)
	return nil
}

func (r *memContentRepo) SetCalendarEventID(ctx context.Context, id int64, eventID *string) (*models.ContentItem, error) {
	r.mu.Lock()
	r.calls["setEvent"]++
	r.mu.Unlock()
	return r.Update(ctx, id, map[string]any{"google_calendar_event_id": eventID})
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn          func(context.Context, string) (*models.User, error)
	createFn           func(context.Context, *models.User) (*models.User, error)
	updateTokensFn     func(context.Context, string, models.CalendarTokens) (*models.User, error)
	disconnectFn       func(context.Context, string) (*models.User, error)
	getCalls, creates  int
	lastTokens         *models.CalendarTokens
	disconnectedUserID string
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.getCalls++
	return s.getByIDFn(ctx, id)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) (*models.User, error) {
	s.creates++
	if s.createFn != nil {
		return s.createFn(ctx, user)
	}
	return user, nil
}

func (s *userRepoStub) UpdateCalendarTokens(ctx context.Context, id string, tokens models.CalendarTokens) (*models.User, error) {
	s.lastTokens = &tokens
	if s.updateTokensFn != nil {
		return s.updateTokensFn(ctx, id, tokens)
	}
	return &models.User{ID: id}, nil
}

func (s *userRepoStub) DisconnectCalendar(ctx context.Context, id string) (*models.User, error) {
	s.disconnectedUserID = id
	if s.disconnectFn != nil {
		return s.disconnectFn(ctx, id)
	}
	return &models.User{ID: id}, nil
}
