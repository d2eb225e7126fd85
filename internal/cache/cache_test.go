// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

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

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestGetPut(t *testing.T) {
	c := New[string](time.Minute, newFakeClock())

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Put("k", "v")
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestExpiry(t *testing.T) {
	clock := newFakeClock()
	c := New[int](5*time.Minute, clock)
	c.Put("a", 1)

	clock.Advance(4 * time.Minute)
	_, ok := c.Get("a")
	assert.True(t, ok, "entry should survive before TTL")

	clock.Advance(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry should expire at TTL")
	assert.Equal(t, 0, c.Len(), "expired entry should be purged on read")
}

func TestPutResetsTTL(t *testing.T) {
	clock := newFakeClock()
	c := New[int](time.Minute, clock)
	c.Put("a", 1)
	clock.Advance(50 * time.Second)
	c.Put("a", 2)
	clock.Advance(50 * time.Second)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestEvictExpired(t *testing.T) {
	clock := newFakeClock()
	c := New[int](time.Minute, clock)
	c.Put("old1", 1)
	c.Put("old2", 2)
	clock.Advance(2 * time.Minute)
	c.Put("fresh", 3)

	assert.Equal(t, 2, c.EvictExpired())
	assert.Equal(t, 1, c.Len())

	c.Evict("fresh")
	assert.Equal(t, 0, c.Len())
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			c.Put(key, i)
			c.Get(key)
			c.EvictExpired()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, c.Len())
}
