package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bffagent/bffagent/internal/chat"
	"github.com/bffagent/bffagent/internal/voice"
)

type stubResponder struct {
	mu      sync.Mutex
	reply   string
	err     error
	windows [][]chat.Message
	block   chan struct{}
}

func (s *stubResponder) Reply(ctx context.Context, window []chat.Message) (string, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = append(s.windows, window)
	return s.reply, s.err
}

type stubSpeaker struct {
	mu      sync.Mutex
	spoken  []string
	cancels int
}

func (s *stubSpeaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return nil
}

func (s *stubSpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

type memoryRecorder struct {
	mu       sync.Mutex
	messages map[string][]chat.Message
}

func (m *memoryRecorder) RecordMessage(ctx context.Context, sessionID string, msg chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.messages == nil {
		m.messages = make(map[string][]chat.Message)
	}
	m.messages[sessionID] = append(m.messages[sessionID], msg)
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	appended []chat.Message
	typing   []bool
	interim  []string
	notices  []string
}

func (o *recordingObserver) MessageAppended(msg chat.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.appended = append(o.appended, msg)
}

func (o *recordingObserver) TypingChanged(typing bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.typing = append(o.typing, typing)
}

func (o *recordingObserver) InterimTranscript(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.interim = append(o.interim, text)
}

func (o *recordingObserver) Notice(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notices = append(o.notices, text)
}

func freeChat(t *testing.T, opts Options) *Session {
	t.Helper()
	opts.SkipOnboarding = true
	return New(context.Background(), opts)
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"my name is Sam", "Sam"},
		{"bob", "Bob"},
		{"Hi! I'm alex.", "Alex"},
		{"i am JORDAN", "Jordan"},
		{"you can call me Riley", "Riley"},
		{"they call me max", "Max"},
		{"it's Priya", "Priya"},
		{"hey there, this is Lee", "Lee"},
		{"name's Bond", "Bond"},
		{"hello", ""},
		{"i am not sure", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractName(tt.input))
		})
	}
}

func TestNewSeedsGreeting(t *testing.T) {
	obs := &recordingObserver{}
	s := New(context.Background(), Options{Observer: obs})

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, chat.Greeting, history[0].Text)
	assert.Equal(t, chat.SenderBot, history[0].Sender)
	assert.Equal(t, StateAwaitingName, s.State())
	assert.Len(t, s.ID(), 26)
	assert.Len(t, obs.appended, 1)
}

func TestSendIgnoresBlankText(t *testing.T) {
	responder := &stubResponder{reply: "hi"}
	s := freeChat(t, Options{Responder: responder})

	msg, err := s.SendUserMessage(context.Background(), " \n\t ")
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Len(t, s.History(), 1)
	assert.Empty(t, responder.windows)
}

func TestSendAppendsReplyAndSpeaks(t *testing.T) {
	responder := &stubResponder{reply: "Great to hear!"}
	speaker := &stubSpeaker{}
	obs := &recordingObserver{}
	s := freeChat(t, Options{Responder: responder, Speaker: speaker, Observer: obs, AudioEnabled: true})

	reply, err := s.SendUserMessage(context.Background(), "I had a good day")
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, "Great to hear!", reply.Text)
	assert.True(t, reply.IsBot())

	history := s.History()
	require.Len(t, history, 3)
	assert.Equal(t, "I had a good day", history[1].Text)
	assert.Equal(t, chat.SenderUser, history[1].Sender)
	assert.Less(t, history[1].ID, history[2].ID)

	assert.Equal(t, []bool{true, false}, obs.typing)
	assert.Equal(t, []string{chat.Greeting, "Great to hear!"}, speaker.spoken)
	assert.False(t, s.Typing())
}

func TestSendFailureAppendsApology(t *testing.T) {
	s := freeChat(t, Options{Responder: &stubResponder{err: errors.New("boom")}})

	reply, err := s.SendUserMessage(context.Background(), "hello?")
	require.NoError(t, err)
	assert.Equal(t, chat.ApologyReply, reply.Text)
}

func TestSendWithoutResponderAppendsApology(t *testing.T) {
	s := freeChat(t, Options{})
	reply, err := s.SendUserMessage(context.Background(), "hello?")
	require.NoError(t, err)
	assert.Equal(t, chat.ApologyReply, reply.Text)
}

func TestSendUsesTrailingWindowOfFive(t *testing.T) {
	responder := &stubResponder{reply: "ok"}
	s := freeChat(t, Options{Responder: responder})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := s.SendUserMessage(ctx, "message")
		require.NoError(t, err)
	}

	require.Len(t, responder.windows, 4)
	assert.Len(t, responder.windows[0], 2)
	last := responder.windows[3]
	require.Len(t, last, WindowSize)
	assert.Equal(t, chat.SenderUser, last[len(last)-1].Sender)
	assert.Equal(t, s.History()[len(s.History())-2], last[len(last)-1])
}

func TestSendWhileAwaitingIsRefused(t *testing.T) {
	responder := &stubResponder{reply: "ok", block: make(chan struct{})}
	s := freeChat(t, Options{Responder: responder})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.SendUserMessage(context.Background(), "first")
	}()

	require.Eventually(t, s.Typing, time.Second, time.Millisecond)
	_, err := s.SendUserMessage(context.Background(), "second")
	assert.ErrorIs(t, err, ErrAwaitingReply)

	close(responder.block)
	<-done
	assert.False(t, s.Typing())
}

func TestDisablingAudioCancelsSpeech(t *testing.T) {
	speaker := &stubSpeaker{}
	s := freeChat(t, Options{Speaker: speaker, AudioEnabled: true})

	s.SetAudioEnabled(false)
	assert.Equal(t, 1, speaker.cancels)

	_, err := s.SendUserMessage(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []string{chat.Greeting}, speaker.spoken)
}

func TestRecorderReceivesEveryTurn(t *testing.T) {
	recorder := &memoryRecorder{}
	s := freeChat(t, Options{Recorder: recorder, Responder: &stubResponder{reply: "yo"}})

	_, err := s.SendUserMessage(context.Background(), "sup")
	require.NoError(t, err)
	assert.Len(t, recorder.messages[s.ID()], 3)
}

func TestOnboardingNicknameFlow(t *testing.T) {
	responder := &stubResponder{reply: "free chat reply"}
	s := New(context.Background(), Options{Responder: responder})
	ctx := context.Background()

	reply, err := s.SendUserMessage(ctx, "hmm")
	require.NoError(t, err)
	assert.Equal(t, AskNameAgain, reply.Text)
	assert.Equal(t, StateAwaitingName, s.State())

	reply, err = s.SendUserMessage(ctx, "my name is Sam")
	require.NoError(t, err)
	assert.Equal(t, "Nice to meet you, Sam! "+NicknamePrompt, reply.Text)
	assert.Equal(t, "Sam", s.UserName())
	assert.Equal(t, StateAwaitingNicknameConsent, s.State())

	reply, err = s.SendUserMessage(ctx, "yeah sure")
	require.NoError(t, err)
	assert.Equal(t, AskNickname, reply.Text)
	assert.Equal(t, StateAwaitingNickname, s.State())

	reply, err = s.SendUserMessage(ctx, "nova")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Nova it is")
	assert.Equal(t, "Nova", s.BotName())
	assert.Equal(t, StateFreeChat, s.State())
	assert.Empty(t, responder.windows)

	reply, err = s.SendUserMessage(ctx, "tell me a joke")
	require.NoError(t, err)
	assert.Equal(t, "free chat reply", reply.Text)
	assert.Len(t, responder.windows, 1)
}

func TestOnboardingNegativeSkipsNickname(t *testing.T) {
	s := New(context.Background(), Options{})
	ctx := context.Background()

	_, err := s.SendUserMessage(ctx, "bob")
	require.NoError(t, err)

	reply, err := s.SendUserMessage(ctx, "not sure")
	require.NoError(t, err)
	assert.Equal(t, StateFreeChat, s.State())
	assert.Equal(t, DefaultBotName, s.BotName())
	assert.Contains(t, reply.Text, "Bob")
}

func TestOnboardingConsentWithDirectNickname(t *testing.T) {
	s := New(context.Background(), Options{})
	ctx := context.Background()

	_, err := s.SendUserMessage(ctx, "I'm Dana")
	require.NoError(t, err)
	_, err = s.SendUserMessage(ctx, "call me... no wait, Sparky")
	require.NoError(t, err)
	assert.Equal(t, StateFreeChat, s.State())
	assert.Equal(t, DefaultBotName, s.BotName())

	s2 := New(context.Background(), Options{})
	_, err = s2.SendUserMessage(ctx, "Dana")
	require.NoError(t, err)
	_, err = s2.SendUserMessage(ctx, "Sparky")
	require.NoError(t, err)
	assert.Equal(t, "Sparky", s2.BotName())
}

func TestProxyClientRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, ChatPath, r.URL.Path)
		require.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		var req chat.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		require.Equal(t, "assistant", req.Messages[0].Sender)
		require.Equal(t, "user", req.Messages[1].Sender)

		_, _ = w.Write([]byte(`{"response":"Hi Sam!"}`))
	}))
	defer server.Close()

	client := NewProxyClient(server.URL+"/", "anon-key")
	reply, err := client.Reply(context.Background(), []chat.Message{
		{ID: 1, Text: chat.Greeting, Sender: chat.SenderBot},
		{ID: 2, Text: "my name is Sam", Sender: chat.SenderUser},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi Sam!", reply)
}

func TestProxyClientFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"non-2xx", http.StatusTooManyRequests, `{"error":"Rate limit exceeded. Please try again in 5 seconds","type":"RateLimitError"}`, "status 429"},
		{"bad json", http.StatusOK, `not json`, "decode response"},
		{"missing field", http.StatusOK, `{"reply":"x"}`, "missing response field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewProxyClient(server.URL, "k").Reply(context.Background(), []chat.Message{{Text: "hi", Sender: chat.SenderUser}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestProxyFailureBecomesApology(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := freeChat(t, Options{Responder: NewProxyClient(server.URL, "k")})
	reply, err := s.SendUserMessage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, chat.ApologyReply, reply.Text)
}

func TestVoiceBridgeSendsFinalTranscripts(t *testing.T) {
	obs := &recordingObserver{}
	responder := &stubResponder{reply: "heard you"}
	s := freeChat(t, Options{Responder: responder, Observer: obs})

	script := voice.NewScriptRecognizer(strings.NewReader("how is it going\n!not-allowed\n"))
	script.WordDelay = time.Millisecond
	bridge := NewVoiceBridge(context.Background(), s)
	capture := voice.NewCapture(script, bridge)
	capture.SilenceTimeout = 20 * time.Millisecond

	require.NoError(t, capture.Start(context.Background()))
	select {
	case <-bridge.Stopped():
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not stop")
	}

	history := s.History()
	require.Len(t, history, 3)
	assert.Equal(t, "how is it going", history[1].Text)
	assert.Equal(t, "heard you", history[2].Text)

	obs.mu.Lock()
	assert.Contains(t, obs.interim, "how")
	obs.mu.Unlock()

	err := capture.Start(context.Background())
	require.Error(t, err)
	obs.mu.Lock()
	assert.Equal(t, []string{voice.MessagePermission}, obs.notices)
	obs.mu.Unlock()
}
