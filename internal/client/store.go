package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"contentflow/internal/models"
)

// DefaultTimeout bounds every request a mutation makes.
const DefaultTimeout = 15 * time.Second

// view is the local picture of server state: the user's list plus
// individually fetched records.
type view struct {
	list    []models.ContentItem
	details map[int64]models.ContentItem
}

func (v *view) index(id int64) int {
	for i := range v.list {
		if v.list[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *view) remove(id int64) (models.ContentItem, int, bool) {
	i := v.index(id)
	if i < 0 {
		return models.ContentItem{}, -1, false
	}
	item := v.list[i]
	v.list = append(v.list[:i:i], v.list[i+1:]...)
	return item, i, true
}

func (v *view) prepend(item models.ContentItem) {
	v.list = append([]models.ContentItem{item}, v.list...)
}

func (v *view) insertAt(i int, item models.ContentItem) {
	if i < 0 || i > len(v.list) {
		i = len(v.list)
	}
	v.list = append(v.list[:i:i], append([]models.ContentItem{item}, v.list[i:]...)...)
}

// Store mirrors the server's content list and applies mutations
// speculatively. Each mutation carries its own record-level snapshot, so
// overlapping mutations roll back independently. Overlapping edits to the
// same record settle as last-confirmed-write-wins.
type Store struct {
	transport Transport
	timeout   time.Duration
	onError   func(*Mutation, error)
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	view     view
	pending  []*Mutation
	nextTemp int64
	subs     map[int]func([]models.ContentItem)
	nextSub  int

	// refreshSeq numbers each Refresh when it starts. A List result whose
	// number is below freshAfter is older than state already shown and is
	// dropped.
	refreshSeq uint64
	freshAfter uint64

	wg sync.WaitGroup
}

type Option func(*Store)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithErrorHandler is called for every rolled back mutation.
func WithErrorHandler(fn func(*Mutation, error)) Option {
	return func(s *Store) { s.onError = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(t Transport, opts ...Option) *Store {
	s := &Store{
		transport: t,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
		now:       time.Now,
		view:      view{details: make(map[int64]models.ContentItem)},
		subs:      make(map[int]func([]models.ContentItem)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Items returns a copy of the current list, speculative changes included.
func (s *Store) Items() []models.ContentItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneList(s.view.list)
}

// Item returns a record from the list or the detail cache.
func (s *Store) Item(id int64) (models.ContentItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.view.index(id); i >= 0 {
		return s.view.list[i].Clone(), true
	}
	if d, ok := s.view.details[id]; ok {
		return d.Clone(), true
	}
	return models.ContentItem{}, false
}

// Subscribe registers fn to receive the list after every change. The
// returned func unsubscribes.
func (s *Store) Subscribe(fn func([]models.ContentItem)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Refresh replaces the list with the server's and replays mutations that
// are still in flight on top of it. A response older than one already
// applied, or requested before the latest commit, is discarded.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.refreshSeq++
	seq := s.refreshSeq
	s.mu.Unlock()

	items, err := s.transport.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if seq < s.freshAfter {
		s.mu.Unlock()
		s.logger.Debug("dropped stale list", slog.Uint64("seq", seq))
		return nil
	}
	s.freshAfter = seq + 1
	s.view.list = cloneList(items)
	for _, item := range items {
		if _, ok := s.view.details[item.ID]; ok {
			s.view.details[item.ID] = item.Clone()
		}
	}
	for _, m := range s.pending {
		m.apply(&s.view)
	}
	list, subs := s.publishLocked()
	s.mu.Unlock()

	notify(subs, list)
	return nil
}

// Fetch loads a single record into the detail cache.
func (s *Store) Fetch(ctx context.Context, id int64) (models.ContentItem, error) {
	item, err := s.transport.Get(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			s.mu.Lock()
			delete(s.view.details, id)
			s.mu.Unlock()
		}
		return models.ContentItem{}, err
	}

	s.mu.Lock()
	s.view.details[id] = item.Clone()
	s.mu.Unlock()
	return item.Clone(), nil
}

// Create prepends a draft with a negative temporary id and posts it. On
// commit the draft is replaced by the server's record.
func (s *Store) Create(ctx context.Context, in models.CreateContentInput) *Mutation {
	s.mu.Lock()
	s.nextTemp--
	tempID := s.nextTemp
	draft := s.draft(tempID, in)

	m := newMutation("create", tempID)
	m.apply = func(v *view) {
		if v.index(tempID) < 0 {
			v.prepend(draft.Clone())
		}
	}
	m.rollback = func(v *view) {
		v.remove(tempID)
	}
	m.commit = func(v *view, res *models.ContentItem) {
		v.remove(tempID)
		if res != nil && v.index(res.ID) < 0 {
			v.prepend(res.Clone())
		}
	}
	s.beginLocked(m)

	return s.launch(ctx, m, func(ctx context.Context) (*models.ContentItem, error) {
		return s.transport.Create(ctx, in)
	})
}

func (s *Store) draft(tempID int64, in models.CreateContentInput) models.ContentItem {
	now := s.now()
	item := models.ContentItem{
		ID:          tempID,
		Title:       in.Title,
		Brief:       in.Brief,
		Status:      in.Status,
		KanbanStage: in.KanbanStage,
		Platform:    in.Platform,
		ScheduledAt: in.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if item.Status == "" {
		item.Status = models.StatusDraft
	}
	if item.KanbanStage == "" {
		item.KanbanStage = models.StageCreation
	}
	if in.Intelligence != nil {
		item.Intelligence = models.NewIntelligence(*in.Intelligence)
	}
	return item.Clone()
}

// Update patches the record in place and sends the patch.
func (s *Store) Update(ctx context.Context, id int64, in models.UpdateContentInput) *Mutation {
	s.mu.Lock()
	var before *models.ContentItem
	if i := s.view.index(id); i >= 0 {
		b := s.view.list[i].Clone()
		before = &b
	}
	var beforeDetail *models.ContentItem
	if d, ok := s.view.details[id]; ok {
		b := d.Clone()
		beforeDetail = &b
	}
	now := s.now()

	m := newMutation("update", id)
	m.apply = func(v *view) {
		if i := v.index(id); i >= 0 {
			v.list[i] = patch(v.list[i], in, now)
		}
		if d, ok := v.details[id]; ok {
			v.details[id] = patch(d, in, now)
		}
	}
	m.rollback = func(v *view) {
		if i := v.index(id); i >= 0 && before != nil {
			v.list[i] = before.Clone()
		}
		if _, ok := v.details[id]; ok && beforeDetail != nil {
			v.details[id] = beforeDetail.Clone()
		}
	}
	m.commit = func(v *view, res *models.ContentItem) {
		if res == nil {
			return
		}
		if i := v.index(id); i >= 0 {
			v.list[i] = res.Clone()
		}
		if _, ok := v.details[id]; ok {
			v.details[id] = res.Clone()
		}
	}
	s.beginLocked(m)

	return s.launch(ctx, m, func(ctx context.Context) (*models.ContentItem, error) {
		return s.transport.Update(ctx, id, in)
	})
}

// Delete removes the record immediately; a rollback puts it back where it was.
func (s *Store) Delete(ctx context.Context, id int64) *Mutation {
	s.mu.Lock()
	var before *models.ContentItem
	position := -1
	if i := s.view.index(id); i >= 0 {
		b := s.view.list[i].Clone()
		before, position = &b, i
	}
	detail, hadDetail := s.view.details[id]

	m := newMutation("delete", id)
	m.apply = func(v *view) {
		v.remove(id)
		delete(v.details, id)
	}
	m.rollback = func(v *view) {
		if before != nil && v.index(id) < 0 {
			v.insertAt(position, before.Clone())
		}
		if hadDetail {
			v.details[id] = detail.Clone()
		}
	}
	m.commit = func(*view, *models.ContentItem) {}
	s.beginLocked(m)

	return s.launch(ctx, m, func(ctx context.Context) (*models.ContentItem, error) {
		return nil, s.transport.Delete(ctx, id)
	})
}

// SyncCalendar pushes the record to the user's calendar and records the
// returned event id locally.
func (s *Store) SyncCalendar(ctx context.Context, id int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	eventID, err := s.transport.SyncCalendar(ctx, id)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if i := s.view.index(id); i >= 0 {
		ev := eventID
		s.view.list[i].GoogleCalendarEventID = &ev
	}
	if d, ok := s.view.details[id]; ok {
		ev := eventID
		d.GoogleCalendarEventID = &ev
		s.view.details[id] = d
	}
	list, subs := s.publishLocked()
	s.mu.Unlock()

	notify(subs, list)
	return eventID, nil
}

// Wait blocks until every in-flight mutation has settled.
func (s *Store) Wait() {
	s.wg.Wait()
}

// beginLocked applies m speculatively. s.mu must be held; launch releases it.
func (s *Store) beginLocked(m *Mutation) {
	m.apply(&s.view)
	s.pending = append(s.pending, m)
	m.setState(Pending)
}

func (s *Store) launch(ctx context.Context, m *Mutation, call func(context.Context) (*models.ContentItem, error)) *Mutation {
	list, subs := s.publishLocked()
	s.mu.Unlock()
	notify(subs, list)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.settle(ctx, m, call)
	}()
	return m
}

func (s *Store) settle(ctx context.Context, m *Mutation, call func(context.Context) (*models.ContentItem, error)) {
	result, err := s.call(ctx, call)
	if err != nil {
		s.mu.Lock()
		s.dropPendingLocked(m)
		m.rollback(&s.view)
		list, subs := s.publishLocked()
		s.mu.Unlock()
		notify(subs, list)

		s.logger.Warn("mutation rolled back",
			slog.String("kind", m.kind),
			slog.Int64("id", m.id),
			slog.String("error", err.Error()))
		if s.onError != nil {
			s.onError(m, err)
		}
		m.settle(RolledBack, nil, err)
		return
	}

	s.mu.Lock()
	s.dropPendingLocked(m)
	m.commit(&s.view, result)
	// Lists requested before this commit cannot contain it.
	s.freshAfter = max(s.freshAfter, s.refreshSeq+1)
	list, subs := s.publishLocked()
	s.mu.Unlock()
	notify(subs, list)

	// The server's list is authoritative; refetch so temporary ids and local
	// timestamps are replaced.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	if err := s.Refresh(rctx); err != nil {
		s.logger.Warn("refetch after mutation failed",
			slog.String("kind", m.kind),
			slog.String("error", err.Error()))
	}
	cancel()

	m.settle(Committed, result, nil)
}

// call runs fn under the store timeout. A transport that ignores its context
// still cannot keep the mutation pending past the deadline.
func (s *Store) call(ctx context.Context, fn func(context.Context) (*models.ContentItem, error)) (*models.ContentItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type outcome struct {
		item *models.ContentItem
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		item, err := fn(ctx)
		ch <- outcome{item, err}
	}()

	select {
	case o := <-ch:
		return o.item, o.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
		}
		return nil, ctx.Err()
	}
}

func (s *Store) dropPendingLocked(m *Mutation) {
	for i, p := range s.pending {
		if p == m {
			s.pending = append(s.pending[:i:i], s.pending[i+1:]...)
			return
		}
	}
}

func (s *Store) publishLocked() ([]models.ContentItem, []func([]models.ContentItem)) {
	if len(s.subs) == 0 {
		return nil, nil
	}
	subs := make([]func([]models.ContentItem), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return cloneList(s.view.list), subs
}

func notify(subs []func([]models.ContentItem), list []models.ContentItem) {
	for _, fn := range subs {
		fn(cloneList(list))
	}
}

func patch(item models.ContentItem, in models.UpdateContentInput, now time.Time) models.ContentItem {
	out := item.Clone()
	if in.Title != nil {
		out.Title = *in.Title
	}
	if in.Brief.Set {
		out.Brief = in.Brief.Ptr()
	}
	if in.Status != nil {
		out.Status = *in.Status
	}
	if in.KanbanStage != nil {
		out.KanbanStage = *in.KanbanStage
	}
	if in.Platform != nil {
		out.Platform = *in.Platform
	}
	if in.ScheduledAt.Set {
		out.ScheduledAt = in.ScheduledAt.Ptr()
	}
	if in.Intelligence.Set {
		out.Intelligence = nil
		if !in.Intelligence.Null {
			out.Intelligence = models.NewIntelligence(in.Intelligence.Value)
		}
	}
	out.UpdatedAt = now
	return out
}

func cloneList(items []models.ContentItem) []models.ContentItem {
	out := make([]models.ContentItem, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}
