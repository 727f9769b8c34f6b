package session

import (
	"context"
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

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	_, ok, err := store.GetFlag(ctx, "a", FlagTemplateFetched)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetFlag(ctx, "a", FlagTemplateFetched, "true"))

	v, ok, err := store.GetFlag(ctx, "a", FlagTemplateFetched)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	_, ok, _ = store.GetFlag(ctx, "b", FlagTemplateFetched)
	assert.False(t, ok, "flags are per session")

	_, ok, _ = store.GetFlag(ctx, "a", "other")
	assert.False(t, ok, "flags are per key")
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := NewMemoryStore(time.Minute).WithClock(clock.Now)

	require.NoError(t, store.SetFlag(ctx, "a", FlagTemplateFetched, "true"))

	clock.Advance(59 * time.Second)
	_, ok, _ := store.GetFlag(ctx, "a", FlagTemplateFetched)
	assert.True(t, ok)

	// a write extends the lifetime
	require.NoError(t, store.SetFlag(ctx, "a", "other", "x"))
	clock.Advance(59 * time.Second)
	_, ok, _ = store.GetFlag(ctx, "a", FlagTemplateFetched)
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok, _ = store.GetFlag(ctx, "a", FlagTemplateFetched)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_ExpiredSessionStartsFresh(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := NewMemoryStore(time.Minute).WithClock(clock.Now)

	require.NoError(t, store.SetFlag(ctx, "a", FlagTemplateFetched, "true"))
	clock.Advance(2 * time.Minute)
	require.NoError(t, store.SetFlag(ctx, "a", "other", "x"))

	_, ok, _ := store.GetFlag(ctx, "a", FlagTemplateFetched)
	assert.False(t, ok)
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := NewMemoryStore(time.Minute).WithClock(clock.Now)

	require.NoError(t, store.SetFlag(ctx, "old", FlagTemplateFetched, "true"))
	clock.Advance(30 * time.Second)
	require.NoError(t, store.SetFlag(ctx, "new", FlagTemplateFetched, "true"))
	clock.Advance(45 * time.Second)

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewID()
			assert.NoError(t, store.SetFlag(ctx, id, FlagTemplateFetched, "true"))
			_, ok, err := store.GetFlag(ctx, id, FlagTemplateFetched)
			assert.NoError(t, err)
			assert.True(t, ok, "goroutine %d", i)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, store.Len())
}

func TestIDs(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.True(t, IsValidID(a))

	for _, id := range []string{"", "session", "00000000-0000-0000-0000-000000000000", a + "x"} {
		assert.False(t, IsValidID(id), id)
	}
}
