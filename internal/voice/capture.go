// Package voice turns a streaming speech recognizer into finalized utterances.
package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Default timings.
const (
	DefaultSilenceTimeout = 1500 * time.Millisecond
	DefaultRestartDelay   = time.Second
)

// Recognizer is the platform speech-recognition capability.
type Recognizer interface {
	// Start begins streaming results into sink. It fails with ErrUnsupported,
	// ErrPermissionDenied or ErrNoDevice when listening cannot begin.
	Start(ctx context.Context, sink Sink) error
	// Stop ends listening gracefully; the recognizer calls Sink.End afterwards.
	Stop() error
	// Abort ends listening immediately.
	Abort() error
}

// Sink receives recognizer events. Result carries the current transcript of the
// utterance; later results supersede earlier ones.
type Sink interface {
	Result(text string, final bool)
	Error(err error)
	End()
}

// Handler receives capture events.
type Handler interface {
	OnInterim(text string)
	OnFinal(text string)
	OnError(err *CaptureError)
	OnStateChange(listening bool)
}

// Capture runs one recognizer session at a time and finalizes each utterance
// after SilenceTimeout without new speech, or on Stop.
type Capture struct {
	SilenceTimeout time.Duration
	AutoRestart    bool
	RestartDelay   time.Duration

	recognizer Recognizer
	handler    Handler

	mu           sync.Mutex
	active       bool
	generation   uint64
	transcript   string
	silence      *time.Timer
	restart      *time.Timer
	ctx          context.Context
	pendingStart bool
	startFailure *CaptureError
}

// NewCapture wraps recognizer, reporting to handler.
func NewCapture(recognizer Recognizer, handler Handler) *Capture {
	return &Capture{
		SilenceTimeout: DefaultSilenceTimeout,
		RestartDelay:   DefaultRestartDelay,
		recognizer:     recognizer,
		handler:        handler,
	}
}

// Listening reports whether a session is active.
func (c *Capture) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Start begins listening. It is a no-op while a session is active or starting.
// Startup failures are reported to the handler and returned as *CaptureError.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.active || c.pendingStart {
		c.mu.Unlock()
		return nil
	}
	if c.recognizer == nil {
		c.mu.Unlock()
		ce := &CaptureError{Kind: KindUnsupported, Err: ErrUnsupported}
		c.handler.OnError(ce)
		return ce
	}
	c.pendingStart = true
	c.startFailure = nil
	c.generation++
	gen := c.generation
	c.transcript = ""
	c.ctx = ctx
	c.stopRestartLocked()
	c.mu.Unlock()

	err := c.recognizer.Start(ctx, &sink{capture: c, generation: gen})

	c.mu.Lock()
	c.pendingStart = false
	if err != nil && gen == c.generation {
		c.mu.Unlock()
		ce := Classify(err)
		c.handler.OnError(ce)
		return ce
	}
	if gen != c.generation {
		// The session failed or ended before it was announced; the handler
		// already saw any error and final text but no state change.
		failure := c.startFailure
		c.startFailure = nil
		c.mu.Unlock()
		if failure != nil {
			return failure
		}
		return nil
	}
	c.active = true
	c.mu.Unlock()

	c.handler.OnStateChange(true)
	return nil
}

// Stop ends listening. A pending non-empty transcript is finalized before the
// handler learns listening stopped.
func (c *Capture) Stop() error {
	c.mu.Lock()
	c.stopRestartLocked()
	if !c.active {
		c.mu.Unlock()
		return nil
	}
	text := c.endLocked()
	c.mu.Unlock()

	err := c.recognizer.Stop()
	c.finish(text, true)
	return err
}

// Close aborts any session and cancels a scheduled restart without finalizing.
func (c *Capture) Close() error {
	c.mu.Lock()
	c.stopRestartLocked()
	wasActive := c.active
	c.endLocked()
	c.mu.Unlock()

	if !wasActive {
		return nil
	}
	c.handler.OnStateChange(false)
	return c.recognizer.Abort()
}

// endLocked deactivates the session and returns the transcript still to be finalized.
func (c *Capture) endLocked() string {
	c.active = false
	c.generation++
	if c.silence != nil {
		c.silence.Stop()
		c.silence = nil
	}
	text := strings.TrimSpace(c.transcript)
	c.transcript = ""
	return text
}

func (c *Capture) stopRestartLocked() {
	if c.restart != nil {
		c.restart.Stop()
		c.restart = nil
	}
}

// finish delivers the final text, then the stop event if listening was announced.
func (c *Capture) finish(text string, announced bool) {
	if text != "" {
		c.handler.OnFinal(text)
	}
	if announced {
		c.handler.OnStateChange(false)
	}
}

func (c *Capture) result(gen uint64, text string) {
	c.mu.Lock()
	if gen != c.generation || (!c.active && !c.pendingStart) || strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		return
	}
	c.transcript = text
	if c.silence != nil {
		c.silence.Stop()
	}
	c.silence = time.AfterFunc(c.silenceTimeout(), func() { c.silenceElapsed(gen) })
	c.mu.Unlock()

	c.handler.OnInterim(text)
}

func (c *Capture) silenceElapsed(gen uint64) {
	c.mu.Lock()
	if gen != c.generation || (!c.active && !c.pendingStart) {
		c.mu.Unlock()
		return
	}
	announced := c.active
	text := c.endLocked()
	c.mu.Unlock()

	_ = c.recognizer.Stop()
	c.finish(text, announced)
}

func (c *Capture) ended(gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if !c.active && !c.pendingStart {
		c.mu.Unlock()
		return
	}
	announced := c.active
	text := c.endLocked()
	c.mu.Unlock()

	c.finish(text, announced)
}

func (c *Capture) failed(gen uint64, err error) {
	if errors.Is(err, ErrAborted) {
		return
	}

	c.mu.Lock()
	if gen != c.generation || (!c.active && !c.pendingStart) {
		c.mu.Unlock()
		return
	}
	announced := c.active
	c.endLocked()
	ce := Classify(err)
	if !announced {
		c.startFailure = ce
	}
	if c.AutoRestart && ce.Transient() && c.ctx != nil && c.ctx.Err() == nil {
		ctx := c.ctx
		c.restart = time.AfterFunc(c.restartDelay(), func() {
			if ctx.Err() == nil {
				_ = c.Start(ctx)
			}
		})
	}
	c.mu.Unlock()

	_ = c.recognizer.Abort()
	c.handler.OnError(ce)
	if announced {
		c.handler.OnStateChange(false)
	}
}

func (c *Capture) silenceTimeout() time.Duration {
	if c.SilenceTimeout <= 0 {
		return DefaultSilenceTimeout
	}
	return c.SilenceTimeout
}

func (c *Capture) restartDelay() time.Duration {
	if c.RestartDelay <= 0 {
		return DefaultRestartDelay
	}
	return c.RestartDelay
}

// sink binds recognizer callbacks to one capture generation so late events from a
// finished session are dropped.
type sink struct {
	capture    *Capture
	generation uint64
}

func (s *sink) Result(text string, final bool) { s.capture.result(s.generation, text) }
func (s *sink) Error(err error)                { s.capture.failed(s.generation, err) }
func (s *sink) End()                           { s.capture.ended(s.generation) }
