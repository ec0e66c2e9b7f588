package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/bffagent/bffagent/internal/observability"
)

// Default circuit breaker settings.
const (
	DefaultBreakerMaxFailures uint32        = 5
	DefaultBreakerTimeout     time.Duration = 30 * time.Second
	DefaultBreakerInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `mapstructure:"max_failures"`
	// Timeout is how long the circuit stays open before a half-open probe.
	Timeout time.Duration `mapstructure:"timeout"`
	// Interval clears failure counts while closed. Zero keeps counts until the circuit opens.
	Interval time.Duration `mapstructure:"interval"`
}

// Breaker wraps a Completer with circuit breaker protection. While open,
// calls fail fast with gobreaker.ErrOpenState.
type Breaker struct {
	inner   Completer
	breaker *gobreaker.CircuitBreaker[*Response]
}

// NewBreaker wraps inner. Zero config fields fall back to defaults.
func NewBreaker(inner Completer, cfg BreakerConfig) *Breaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = DefaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = DefaultBreakerInterval
	}

	cb := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        "provider:" + inner.Name(),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if observability.ServerLogger != nil {
				observability.ServerLogger.Warn("Circuit breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			}
		},
		// Caller cancellation, local pacing waits and credential problems say
		// nothing about provider health.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrThrottled) {
				return true
			}
			return Classify(err) == ClassConfig
		},
	})

	return &Breaker{inner: inner, breaker: cb}
}

// Complete routes the call through the circuit breaker.
func (b *Breaker) Complete(ctx context.Context, req *Request) (*Response, error) {
	resp, err := b.breaker.Execute(func() (*Response, error) {
		return b.inner.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("provider %q circuit open: %w", b.inner.Name(), err)
		}
		return nil, err
	}
	return resp, nil
}

// Name returns the wrapped provider name.
func (b *Breaker) Name() string { return b.inner.Name() }

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State { return b.breaker.State() }

var _ Completer = (*Breaker)(nil)
