// Package session drives one client conversation: history, the scripted
// onboarding, proxy round trips, and optional speech readout.
package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/bffagent/bffagent/internal/chat"
	"github.com/bffagent/bffagent/internal/observability"
)

// WindowSize is how many trailing messages are sent to the proxy per turn.
const WindowSize = 5

// ErrAwaitingReply is returned when a message is sent while the previous reply is pending.
var ErrAwaitingReply = errors.New("still waiting for the previous reply")

// Responder produces the bot reply for a trailing window of the conversation.
type Responder interface {
	Reply(ctx context.Context, window []chat.Message) (string, error)
}

// Speaker reads bot replies aloud. Speak must not block for the length of the readout.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Cancel()
}

// Recorder persists conversation turns.
type Recorder interface {
	RecordMessage(ctx context.Context, sessionID string, msg chat.Message) error
}

// Observer receives render updates. Calls happen on the goroutine that caused them.
type Observer interface {
	MessageAppended(msg chat.Message)
	TypingChanged(typing bool)
	InterimTranscript(text string)
	Notice(text string)
}

// Options configures a Session. Every collaborator is optional.
type Options struct {
	Responder Responder
	Speaker   Speaker
	Recorder  Recorder
	Observer  Observer
	// SkipOnboarding starts directly in free chat.
	SkipOnboarding bool
	AudioEnabled   bool
	Clock          func() time.Time
}

// Session is one conversation. It is safe for concurrent use.
type Session struct {
	id        string
	responder Responder
	speaker   Speaker
	recorder  Recorder
	observer  Observer
	clock     func() time.Time

	mu       sync.Mutex
	history  []chat.Message
	nextID   int64
	awaiting bool
	audio    bool
	script   *onboarding
}

// New starts a session seeded with the greeting.
func New(ctx context.Context, opts Options) *Session {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	now := clock()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(now.UnixNano())), 0)

	s := &Session{
		id:        ulid.MustNew(ulid.Timestamp(now), entropy).String(),
		responder: opts.Responder,
		speaker:   opts.Speaker,
		recorder:  opts.Recorder,
		observer:  opts.Observer,
		clock:     clock,
		audio:     opts.AudioEnabled,
		script:    newOnboarding(),
	}
	if opts.SkipOnboarding {
		s.script.state = StateFreeChat
	}

	s.appendBot(ctx, chat.Greeting)
	return s
}

// ID returns the session's ULID.
func (s *Session) ID() string { return s.id }

// History returns a copy of the conversation so far.
func (s *Session) History() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return chat.Tail(s.history, 0)
}

// State returns the onboarding state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.script.state
}

// UserName returns the name learned during onboarding.
func (s *Session) UserName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.script.userName
}

// BotName returns the nickname the user picked, or DefaultBotName.
func (s *Session) BotName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.script.botName
}

// Typing reports whether a reply is pending.
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}

// SetAudioEnabled toggles speech readout. Disabling it cancels speech in progress.
func (s *Session) SetAudioEnabled(enabled bool) {
	s.mu.Lock()
	s.audio = enabled
	s.mu.Unlock()

	if !enabled && s.speaker != nil {
		s.speaker.Cancel()
	}
}

// SendUserMessage appends a user turn and the bot's reply, which it returns.
// Whitespace-only text is ignored and yields (nil, nil). Proxy failures never
// surface as errors: the reply becomes chat.ApologyReply.
func (s *Session) SendUserMessage(ctx context.Context, text string) (*chat.Message, error) {
	if chat.IsBlank(text) {
		return nil, nil
	}

	s.mu.Lock()
	if s.awaiting {
		s.mu.Unlock()
		return nil, ErrAwaitingReply
	}
	s.awaiting = true
	user := s.newMessage(text, chat.SenderUser)
	scripted, handled := s.script.step(text)
	window := chat.Tail(s.history, WindowSize)
	s.mu.Unlock()

	s.emitAppended(ctx, user)
	s.emitTyping(true)

	var reply string
	if handled {
		reply = scripted
	} else {
		reply = s.ask(ctx, window)
	}

	bot := s.appendBot(ctx, reply)

	s.mu.Lock()
	s.awaiting = false
	s.mu.Unlock()
	s.emitTyping(false)

	return &bot, nil
}

func (s *Session) ask(ctx context.Context, window []chat.Message) string {
	if s.responder == nil {
		return chat.ApologyReply
	}

	reply, err := s.responder.Reply(ctx, window)
	if err != nil || chat.IsBlank(reply) {
		if observability.CLILogger != nil {
			observability.CLILogger.Debug("Chat reply failed",
				zap.String("session_id", s.id),
				zap.Error(err))
		}
		return chat.ApologyReply
	}
	return reply
}

// newMessage appends a message to history. Caller holds s.mu.
func (s *Session) newMessage(text string, sender chat.Sender) chat.Message {
	s.nextID++
	msg := chat.Message{ID: s.nextID, Text: text, Sender: sender, Timestamp: s.clock()}
	s.history = append(s.history, msg)
	return msg
}

func (s *Session) appendBot(ctx context.Context, text string) chat.Message {
	s.mu.Lock()
	msg := s.newMessage(text, chat.SenderBot)
	audio := s.audio
	s.mu.Unlock()

	s.emitAppended(ctx, msg)

	if audio && s.speaker != nil {
		if err := s.speaker.Speak(ctx, text); err != nil && observability.CLILogger != nil {
			observability.CLILogger.Debug("Speech readout failed", zap.Error(err))
		}
	}
	return msg
}

func (s *Session) emitAppended(ctx context.Context, msg chat.Message) {
	if s.recorder != nil {
		if err := s.recorder.RecordMessage(ctx, s.id, msg); err != nil && observability.CLILogger != nil {
			observability.CLILogger.Warn("Failed to record message",
				zap.String("session_id", s.id),
				zap.Int64("message_id", msg.ID),
				zap.Error(err))
		}
	}
	if s.observer != nil {
		s.observer.MessageAppended(msg)
	}
}

func (s *Session) emitTyping(typing bool) {
	if s.observer != nil {
		s.observer.TypingChanged(typing)
	}
}
