package provider

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// ErrThrottled is returned when the pacing limiter cannot admit a request before ctx ends.
var ErrThrottled = errors.New("provider request throttled")

// Throttle paces upstream requests process-wide, independent of the per-client window.
type Throttle struct {
	inner   Completer
	limiter *rate.Limiter
}

// NewThrottle wraps inner with a token bucket of perSecond requests and the given burst.
// perSecond <= 0 disables pacing and returns inner unchanged.
func NewThrottle(inner Completer, perSecond float64, burst int) Completer {
	if perSecond <= 0 {
		return inner
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{inner: inner, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Complete waits for a token, then forwards the request.
func (t *Throttle) Complete(ctx context.Context, req *Request) (*Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrThrottled, err)
	}
	return t.inner.Complete(ctx, req)
}

// Name returns the wrapped provider name.
func (t *Throttle) Name() string { return t.inner.Name() }
