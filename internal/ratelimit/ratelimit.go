// Package ratelimit enforces a fixed request window per client.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bffagent/bffagent/internal/metrics"
	"github.com/bffagent/bffagent/internal/observability"
)

const (
	DefaultWindow      = time.Minute
	DefaultMaxRequests = 30
)

// Counter is the per-client window state.
type Counter struct {
	Count   int
	ResetAt time.Time
}

// Expired reports whether the window has fully elapsed at now.
func (c *Counter) Expired(now time.Time) bool {
	return c == nil || now.After(c.ResetAt)
}

// Store persists counters keyed by client.
type Store interface {
	GetCounter(ctx context.Context, key string) (*Counter, error)
	PutCounter(ctx context.Context, key string, counter *Counter) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// LimitError is returned when a client has used up its window.
type LimitError struct {
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the remaining window up to whole seconds, never below one.
func (e *LimitError) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("Rate limit exceeded. Please try again in %d seconds", e.RetryAfterSeconds())
}

// Limiter enforces MaxRequests per Window for each client key.
type Limiter struct {
	Store       Store
	Window      time.Duration
	MaxRequests int
	Clock       func() time.Time

	// mu serializes read-modify-write cycles so one instance never over-admits.
	mu sync.Mutex
}

// New returns a limiter over store with the given window settings. Zero values fall back to defaults.
func New(store Store, window time.Duration, maxRequests int) *Limiter {
	return &Limiter{Store: store, Window: window, MaxRequests: maxRequests}
}

// Check counts one request for key. It returns *LimitError once the window is exhausted;
// the rejected request is not counted.
func (l *Limiter) Check(ctx context.Context, key string) error {
	if l == nil || l.Store == nil {
		return nil
	}

	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	counter, err := l.Store.GetCounter(ctx, key)
	if err != nil {
		return fmt.Errorf("load rate limit counter: %w", err)
	}

	if counter.Expired(now) {
		counter = &Counter{Count: 1, ResetAt: now.Add(l.window())}
		return l.put(ctx, key, counter)
	}

	if counter.Count >= l.maxRequests() {
		return &LimitError{RetryAfter: counter.ResetAt.Sub(now)}
	}

	counter.Count++
	return l.put(ctx, key, counter)
}

// Sweep drops every counter whose window has elapsed.
func (l *Limiter) Sweep(ctx context.Context) (int, error) {
	if l == nil || l.Store == nil {
		return 0, nil
	}
	removed, err := l.Store.DeleteExpired(ctx, l.now())
	if err != nil {
		return 0, fmt.Errorf("sweep rate limit counters: %w", err)
	}
	metrics.RecordRateLimitSweep(removed)
	return removed, nil
}

// Run sweeps expired counters once per window until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	if l == nil || l.Store == nil {
		return
	}

	ticker := time.NewTicker(l.window())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := l.Sweep(ctx)
			if observability.ServerLogger == nil {
				continue
			}
			if err != nil {
				observability.ServerLogger.Warn("Rate limit sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				observability.ServerLogger.Debug("Rate limit sweep", zap.Int("removed", removed))
			}
		}
	}
}

func (l *Limiter) put(ctx context.Context, key string, counter *Counter) error {
	if err := l.Store.PutCounter(ctx, key, counter); err != nil {
		return fmt.Errorf("store rate limit counter: %w", err)
	}
	return nil
}

func (l *Limiter) window() time.Duration {
	if l.Window <= 0 {
		return DefaultWindow
	}
	return l.Window
}

func (l *Limiter) maxRequests() int {
	if l.MaxRequests <= 0 {
		return DefaultMaxRequests
	}
	return l.MaxRequests
}

func (l *Limiter) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}
