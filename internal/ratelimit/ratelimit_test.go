package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)}
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

func TestBucket_BurstThenRefill(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := NewBucket(3, 1, clock.Now)

	for i := range 3 {
		assert.True(t, b.Allow(), "request %d", i)
	}
	assert.False(t, b.Allow())
	assert.Equal(t, time.Second, b.RetryAfter())

	clock.Advance(1500 * time.Millisecond)
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())

	clock.Advance(time.Hour)
	assert.InDelta(t, 3, b.Available(), 1e-9, "refill is capped at capacity")
	assert.True(t, b.IsFull())
}

func TestBucket_CheckDoesNotConsume(t *testing.T) {
	t.Parallel()

	b := NewBucket(1, 0, newFakeClock().Now)
	assert.True(t, b.Check())
	assert.True(t, b.Check())
	b.Consume()
	assert.False(t, b.Check())
	assert.Zero(t, b.RetryAfter(), "no refill means no retry estimate")
}

func TestBucket_Concurrent(t *testing.T) {
	t.Parallel()

	b := NewBucket(100, 0, nil)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 200 {
		wg.Go(func() {
			if b.Allow() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	assert.Equal(t, 100, allowed)
}

func TestSlidingWindowCounter(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewSlidingWindowCounter(4, time.Hour, clock.Now)

	for range 4 {
		assert.True(t, c.Check())
		c.Consume()
	}
	assert.False(t, c.Check())
	assert.Equal(t, 0, c.Remaining())

	// Half way into the next window, half of the previous count still applies.
	clock.Advance(90 * time.Minute)
	assert.Equal(t, 2, c.Remaining())

	// Two windows later nothing is left over.
	clock.Advance(2 * time.Hour)
	assert.Equal(t, 4, c.Remaining())
}

func TestSlidingWindowCounter_Disabled(t *testing.T) {
	t.Parallel()

	var c *SlidingWindowCounter = NewSlidingWindowCounter(0, time.Hour, nil)
	assert.Nil(t, c)
	assert.True(t, c.Check())
	c.Consume()
	assert.Equal(t, -1, c.Remaining())
}
