package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter() (*Limiter, *MemoryStore, *fakeClock) {
	store := NewMemoryStore()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := &Limiter{
		Store:       store,
		Window:      time.Minute,
		MaxRequests: 30,
		Clock:       clock.Now,
	}
	return limiter, store, clock
}

func TestLimiterAllowsThirtyThenRejects(t *testing.T) {
	limiter, _, clock := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		require.NoError(t, limiter.Check(ctx, "10.0.0.1"), "request %d", i+1)
		clock.Advance(time.Second)
	}

	err := limiter.Check(ctx, "10.0.0.1")
	require.Error(t, err)

	var limitErr *LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 30, limitErr.RetryAfterSeconds())
	assert.Equal(t, "Rate limit exceeded. Please try again in 30 seconds", err.Error())
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	limiter, _, _ := newTestLimiter()
	limiter.MaxRequests = 1
	ctx := context.Background()

	require.NoError(t, limiter.Check(ctx, "a"))
	require.Error(t, limiter.Check(ctx, "a"))
	require.NoError(t, limiter.Check(ctx, "b"))
}

func TestLimiterResetsAfterWindow(t *testing.T) {
	limiter, store, clock := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		require.NoError(t, limiter.Check(ctx, "client"))
	}
	require.Error(t, limiter.Check(ctx, "client"))

	clock.Advance(time.Minute + time.Millisecond)
	require.NoError(t, limiter.Check(ctx, "client"))

	counter, err := store.GetCounter(ctx, "client")
	require.NoError(t, err)
	assert.Equal(t, 1, counter.Count)
}

func TestLimiterRejectedRequestIsNotCounted(t *testing.T) {
	limiter, store, _ := newTestLimiter()
	limiter.MaxRequests = 2
	ctx := context.Background()

	require.NoError(t, limiter.Check(ctx, "client"))
	require.NoError(t, limiter.Check(ctx, "client"))
	require.Error(t, limiter.Check(ctx, "client"))
	require.Error(t, limiter.Check(ctx, "client"))

	counter, err := store.GetCounter(ctx, "client")
	require.NoError(t, err)
	assert.Equal(t, 2, counter.Count)
}

func TestLimitErrorRetryAfterIsAtLeastOneSecond(t *testing.T) {
	err := &LimitError{RetryAfter: 0}
	assert.Equal(t, 1, err.RetryAfterSeconds())

	err = &LimitError{RetryAfter: 1500 * time.Millisecond}
	assert.Equal(t, 2, err.RetryAfterSeconds())
}

func TestLimiterSweepDropsExpiredCounters(t *testing.T) {
	limiter, store, clock := newTestLimiter()
	ctx := context.Background()

	require.NoError(t, limiter.Check(ctx, "old"))
	clock.Advance(45 * time.Second)
	require.NoError(t, limiter.Check(ctx, "fresh"))
	clock.Advance(20 * time.Second)

	removed, err := limiter.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	counter, err := store.GetCounter(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, counter)
}

func TestLimiterRunStopsOnCancel(t *testing.T) {
	limiter, _, _ := newTestLimiter()
	limiter.Window = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var limiter *Limiter
	require.NoError(t, limiter.Check(context.Background(), "x"))
}
