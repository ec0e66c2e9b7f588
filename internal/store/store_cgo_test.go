//go:build cgo

package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bffagent/bffagent/internal/chat"
	"github.com/bffagent/bffagent/internal/config"
	"github.com/bffagent/bffagent/internal/ratelimit"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), config.StoreConfig{
		Driver: "libsql",
		Path:   filepath.Join(t.TempDir(), "bffagent.db"),
	})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenMemoryStore(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.Equal(t, "libsql", s.Driver())
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx), "migrations are idempotent")
	require.NoError(t, s.Close())
}

func TestCounterRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	counter, err := s.GetCounter(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Nil(t, counter)

	resetAt := time.UnixMilli(1_700_000_060_000)
	require.NoError(t, s.PutCounter(ctx, "10.0.0.1", &ratelimit.Counter{Count: 1, ResetAt: resetAt}))
	require.NoError(t, s.PutCounter(ctx, "10.0.0.1", &ratelimit.Counter{Count: 2, ResetAt: resetAt}))

	counter, err = s.GetCounter(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, counter)
	assert.Equal(t, 2, counter.Count)
	assert.True(t, resetAt.Equal(counter.ResetAt))
}

func TestDeleteExpired(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, s.PutCounter(ctx, "old", &ratelimit.Counter{Count: 3, ResetAt: now.Add(-time.Second)}))
	require.NoError(t, s.PutCounter(ctx, "fresh", &ratelimit.Counter{Count: 1, ResetAt: now.Add(time.Minute)}))

	removed, err := s.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := s.ListRateLimits(ctx, RateLimitQuery{All: true})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].ClientKey)
}

func TestLimiterOverLibsql(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	limiter := ratelimit.New(s, time.Minute, 30)
	limiter.Clock = func() time.Time { return now }

	for i := 0; i < 30; i++ {
		require.NoError(t, limiter.Check(ctx, "client"), "request %d", i+1)
	}

	err := limiter.Check(ctx, "client")
	var limitErr *ratelimit.LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 60, limitErr.RetryAfterSeconds())
}

func TestListAndResetRateLimits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	resetAt := time.Now().Add(time.Minute)

	for _, key := range []string{"10.0.0.1", "10.0.0.2", "192.168.1.5"} {
		require.NoError(t, s.PutCounter(ctx, key, &ratelimit.Counter{Count: 1, ResetAt: resetAt}))
	}

	entries, err := s.ListRateLimits(ctx, RateLimitQuery{Prefix: "10.0."})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = s.ListRateLimits(ctx, RateLimitQuery{Prefix: "10_0"})
	require.NoError(t, err)
	assert.Empty(t, entries)

	removed, err := s.ResetRateLimits(ctx, RateLimitQuery{Prefix: "%"})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = s.ResetRateLimits(ctx, RateLimitQuery{Key: "192.168.1.5"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = s.ResetRateLimits(ctx, RateLimitQuery{All: true})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = s.ResetRateLimits(ctx, RateLimitQuery{})
	require.Error(t, err)
}

func TestConversationHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.UnixMilli(1_700_000_000_000)

	first := []chat.Message{
		{ID: 1, Text: "Hi! What's your name?", Sender: chat.SenderBot, Timestamp: start},
		{ID: 2, Text: "my name is Sam", Sender: chat.SenderUser, Timestamp: start.Add(time.Second)},
	}
	for _, msg := range first {
		require.NoError(t, s.RecordMessage(ctx, "session-a", msg))
	}
	require.NoError(t, s.RecordMessage(ctx, "session-a", first[1]), "duplicate ids are ignored")
	require.NoError(t, s.RecordMessage(ctx, "session-b", chat.Message{
		ID: 1, Text: "hello", Sender: chat.SenderUser, Timestamp: start.Add(time.Minute),
	}))

	convs, err := s.ListConversations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "session-b", convs[0].ID)
	assert.Equal(t, "session-a", convs[1].ID)
	assert.Equal(t, 2, convs[1].MessageCount)
	assert.True(t, start.Equal(convs[1].StartedAt))

	limited, err := s.ListConversations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	msgs, err := s.Messages(ctx, "session-a")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.SenderBot, msgs[0].Sender)
	assert.Equal(t, "my name is Sam", msgs[1].Text)

	_, err = s.Messages(ctx, "missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	require.Error(t, s.RecordMessage(ctx, " ", first[0]))
}
