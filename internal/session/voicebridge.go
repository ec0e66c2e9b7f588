package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/bffagent/bffagent/internal/observability"
	"github.com/bffagent/bffagent/internal/voice"
)

// VoiceBridge feeds finalized voice transcripts into a session as user turns.
type VoiceBridge struct {
	ctx     context.Context
	session *Session
	stopped chan struct{}
}

// NewVoiceBridge returns a voice.Handler sending transcripts to s under ctx.
func NewVoiceBridge(ctx context.Context, s *Session) *VoiceBridge {
	return &VoiceBridge{ctx: ctx, session: s, stopped: make(chan struct{}, 1)}
}

// Stopped signals each time the capture stops listening.
func (b *VoiceBridge) Stopped() <-chan struct{} { return b.stopped }

// OnInterim shows the partial transcript.
func (b *VoiceBridge) OnInterim(text string) {
	if b.session.observer != nil {
		b.session.observer.InterimTranscript(text)
	}
}

// OnFinal sends the utterance as a user message.
func (b *VoiceBridge) OnFinal(text string) {
	if _, err := b.session.SendUserMessage(b.ctx, text); err != nil && observability.CLILogger != nil {
		observability.CLILogger.Warn("Voice transcript dropped",
			zap.String("session_id", b.session.ID()),
			zap.Error(err))
	}
}

// OnError surfaces the user-facing capture message.
func (b *VoiceBridge) OnError(err *voice.CaptureError) {
	if observability.CLILogger != nil {
		observability.CLILogger.Debug("Voice capture error",
			zap.String("kind", err.Kind.String()),
			zap.Error(err))
	}
	if b.session.observer != nil {
		b.session.observer.Notice(err.Message())
	}
}

// OnStateChange records stop transitions for callers waiting on Stopped.
func (b *VoiceBridge) OnStateChange(listening bool) {
	if listening {
		return
	}
	select {
	case b.stopped <- struct{}{}:
	default:
	}
}

var _ voice.Handler = (*VoiceBridge)(nil)
