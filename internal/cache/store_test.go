package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStore_GetAfterSet(t *testing.T) {
	t.Parallel()
	s := New[string]("test", 10, time.Minute)

	s.Set("a", "alpha")
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", got)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStore_Overwrite(t *testing.T) {
	t.Parallel()
	s := New[int]("test", 2, time.Minute)

	s.Set("a", 1)
	s.Set("b", 2)
	s.Set("a", 3)

	assert.Equal(t, 2, s.Len(), "overwriting an existing key must not evict")
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, got)
	_, ok = s.Get("b")
	assert.True(t, ok)
}

func TestStore_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	s := New[string]("test", 10, time.Minute, WithClock(clock.Now))

	s.Set("a", "alpha")
	clock.Advance(59 * time.Second)
	_, ok := s.Get("a")
	require.True(t, ok, "entry is fresh within the TTL")

	// The hit above refreshed the entry, so a full TTL must elapse again.
	clock.Advance(61 * time.Second)
	_, ok = s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len(), "expired entry is evicted on read")

	s.Set("a", "again")
	got, ok := s.Get("a")
	require.True(t, ok, "expired key is re-admitted by set")
	assert.Equal(t, "again", got)
}

func TestStore_CapacityEvictsLeastRecentlyRefreshed(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	const capacity = 3
	s := New[int]("test", capacity, time.Hour, WithClock(clock.Now))

	for i := 0; i < capacity; i++ {
		s.Set(fmt.Sprintf("k%d", i), i)
		clock.Advance(time.Second)
	}

	// Refresh k0 so k1 becomes the least recently refreshed entry.
	_, ok := s.Get("k0")
	require.True(t, ok)

	s.Set("k3", 3)

	assert.Equal(t, capacity, s.Len())
	_, ok = s.Get("k1")
	assert.False(t, ok, "least recently refreshed key is evicted")
	for _, k := range []string{"k0", "k2", "k3"} {
		_, ok := s.Get(k)
		assert.True(t, ok, "key %s should remain resident", k)
	}
}

func TestStore_InsertingNPlusOneKeysLeavesN(t *testing.T) {
	t.Parallel()
	const capacity = 50
	s := New[int]("test", capacity, time.Hour)

	for i := 0; i <= capacity; i++ {
		s.Set(fmt.Sprintf("k%d", i), i)
	}

	assert.Equal(t, capacity, s.Len())
	_, ok := s.Get("k0")
	assert.False(t, ok, "first inserted key is the eviction victim")
}

func TestStore_DeleteAndClear(t *testing.T) {
	t.Parallel()
	s := New[string]("test", 10, time.Minute)

	s.Delete("never-set")
	s.Set("a", "alpha")
	s.Set("b", "beta")
	s.Delete("a")

	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestStore_Stats(t *testing.T) {
	t.Parallel()
	s := New[string]("stats", 10, time.Minute)

	s.Set("a", "alpha")
	s.Get("a")
	s.Get("a")
	s.Get("b")

	st := s.Stats()
	assert.Equal(t, "stats", st.Name)
	assert.Equal(t, 1, st.Size)
	assert.Equal(t, 10, st.Capacity)
	assert.Equal(t, uint64(2), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.InDelta(t, 66.67, st.HitRate, 0.01)
	// One resident entry accessed three times: inserted once plus two hits.
	assert.InDelta(t, 33.33, st.ApproxHitRate, 0.01)
}

func TestStore_EvictionsExcludeInvalidations(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	s := New[string]("test", 2, time.Minute, WithClock(clock.Now))

	s.Set("a", "alpha")
	s.Set("b", "beta")
	s.Delete("a")
	s.Delete("b")
	assert.Equal(t, uint64(0), s.Stats().Evictions)

	s.Set("c", "gamma")
	s.Set("d", "delta")
	s.Set("e", "epsilon")
	assert.Equal(t, uint64(1), s.Stats().Evictions)

	clock.Advance(2 * time.Minute)
	_, ok := s.Get("e")
	require.False(t, ok)
	assert.Equal(t, uint64(2), s.Stats().Evictions)
}

func TestStore_NilIsSafe(t *testing.T) {
	t.Parallel()
	var s *Store[int]

	assert.NotPanics(t, func() {
		s.Set("a", 1)
		_, ok := s.Get("a")
		assert.False(t, ok)
		s.Delete("a")
		s.Clear()
		assert.Equal(t, 0, s.Len())
		assert.Equal(t, Stats{}, s.Stats())
	})
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	s := New[int]("test", 64, time.Minute)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (w*500+i)%100)
				s.Set(key, i)
				s.Get(key)
				if i%7 == 0 {
					s.Delete(key)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, s.Len(), 64)
}
