// Package cache provides the in-memory content caches and the Redis client.
package cache

import (
	"sync"
	"time"

	"contentflow/internal/observability"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Eviction reasons reported to metrics.
const (
	reasonExpired     = "expired"
	reasonCapacity    = "capacity"
	reasonInvalidated = "invalidated"
)

type entry[V any] struct {
	value       V
	touched     time.Time
	accessCount int
}

// Store is a bounded key/value store with per-entry expiry and approximate
// LRU eviction. Each logical domain gets its own instance.
//
// Values are kept as given; callers must not mutate a value after Set or
// after receiving it from Get.
type Store[V any] struct {
	name     string
	capacity int
	ttl      time.Duration
	now      func() time.Time

	// lru is not safe for concurrent use; mu guards it together with the
	// expiry check on read.
	mu      sync.Mutex
	lru     *simplelru.LRU[string, *entry[V]]
	hits    uint64
	misses  uint64
	evicted uint64
}

// Option configures a Store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New creates a Store holding at most capacity entries, each living ttl
// since it was last refreshed.
func New[V any](name string, capacity int, ttl time.Duration, opts ...Option) *Store[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if capacity < 1 {
		capacity = 1
	}
	// NewLRU only fails for a non-positive size.
	l, _ := simplelru.NewLRU[string, *entry[V]](capacity, nil)
	return &Store[V]{
		name:     name,
		capacity: capacity,
		ttl:      ttl,
		now:      o.now,
		lru:      l,
	}
}

// Name returns the store's metrics label.
func (s *Store[V]) Name() string {
	return s.name
}

// Get returns the value for key. An entry older than the TTL is removed and
// reported as absent. A hit refreshes the entry's recency.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V
	if s == nil {
		return zero, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Get also moves the entry to the most recent position.
	e, ok := s.lru.Get(key)
	if !ok {
		s.miss()
		return zero, false
	}
	now := s.now()
	if now.Sub(e.touched) > s.ttl {
		s.remove(key, reasonExpired)
		s.miss()
		return zero, false
	}

	e.touched = now
	e.accessCount++
	s.hits++
	observability.CacheHits.WithLabelValues(s.name).Inc()
	return e.value, true
}

// Set inserts or overwrites key. When the store is full and key is new, the
// least recently refreshed entry is evicted first.
func (s *Store[V]) Set(key string, value V) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lru.Add(key, &entry[V]{value: value, touched: s.now(), accessCount: 1}) {
		s.evicted++
		observability.CacheEvictions.WithLabelValues(s.name, reasonCapacity).Inc()
	}
	observability.CacheSize.WithLabelValues(s.name).Set(float64(s.lru.Len()))
}

// Delete removes key. Absent keys are ignored.
func (s *Store[V]) Delete(key string) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(key, reasonInvalidated)
}

// Clear drops every entry. Counters are kept.
func (s *Store[V]) Clear() {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lru.Purge()
	observability.CacheSize.WithLabelValues(s.name).Set(0)
}

// Len returns the number of resident entries, expired ones included until
// they are read.
func (s *Store[V]) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Stats is a point-in-time snapshot of a store.
type Stats struct {
	Name      string  `json:"name"`
	Size      int     `json:"size"`
	Capacity  int     `json:"maxSize"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hitRate"`

	// ApproxHitRate is resident size divided by the summed access counts of
	// resident entries, times 100. It is not a hit ratio and is reported only
	// for continuity with older dashboards.
	ApproxHitRate float64 `json:"approxHitRate"`
}

// Stats reports size, capacity and hit/miss counters.
func (s *Store[V]) Stats() Stats {
	if s == nil {
		return Stats{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Name:      s.name,
		Size:      s.lru.Len(),
		Capacity:  s.capacity,
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evicted,
	}
	if total := s.hits + s.misses; total > 0 {
		st.HitRate = float64(s.hits) / float64(total) * 100
	}

	totalAccess := 0
	for _, e := range s.lru.Values() {
		totalAccess += e.accessCount
	}
	if totalAccess > 0 {
		st.ApproxHitRate = float64(st.Size) / float64(totalAccess) * 100
	}
	return st
}

// remove drops key. Invalidations are reported to metrics but do not count
// toward Stats.Evictions.
func (s *Store[V]) remove(key string, reason string) {
	if !s.lru.Remove(key) {
		return
	}
	if reason != reasonInvalidated {
		s.evicted++
	}
	observability.CacheEvictions.WithLabelValues(s.name, reason).Inc()
	observability.CacheSize.WithLabelValues(s.name).Set(float64(s.lru.Len()))
}

func (s *Store[V]) miss() {
	s.misses++
	observability.CacheMisses.WithLabelValues(s.name).Inc()
}
