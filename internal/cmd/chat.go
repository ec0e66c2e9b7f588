package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bffagent/bffagent/internal/chat"
	"github.com/bffagent/bffagent/internal/observability"
	"github.com/bffagent/bffagent/internal/session"
	"github.com/bffagent/bffagent/internal/voice"
)

var (
	chatVoiceScript  string
	chatPersist      bool
	chatNoAudio      bool
	chatSpeakCommand []string
	chatSkipIntro    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the companion through a running proxy",
	Long: `Start an interactive chat session against a proxy.

Type a message and press enter. In-session commands:
  /audio on|off   toggle spoken replies
  /voice          listen for the next utterance from --voice-script
  /quit           end the session

The proxy is configured with client.base_url and client.access_key
(or BFFAGENT_CLIENT_BASE_URL / BFFAGENT_CLIENT_ACCESS_KEY).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		if err := cfg.Client.Validate(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		view := &terminalView{w: out}

		opts := session.Options{
			Responder:      session.NewProxyClient(cfg.Client.BaseURL, cfg.Client.AccessKey),
			Observer:       view,
			SkipOnboarding: chatSkipIntro,
		}
		if len(chatSpeakCommand) > 0 && !chatNoAudio {
			opts.Speaker = session.NewCommandSpeaker(chatSpeakCommand...)
			opts.AudioEnabled = true
		}
		if chatPersist {
			db, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer db.Close() // nolint:errcheck // best-effort cleanup
			opts.Recorder = db
		}

		s := session.New(ctx, opts)
		view.attach(s)
		observability.CLILogger.Debug("Chat session started",
			zap.String("session_id", s.ID()),
			zap.String("proxy", cfg.Client.BaseURL),
			zap.Bool("persist", chatPersist))

		var listener *voiceListener
		if chatVoiceScript != "" {
			file, err := os.Open(chatVoiceScript)
			if err != nil {
				return fmt.Errorf("open voice script: %w", err)
			}
			defer file.Close() // nolint:errcheck // read-only
			listener = newVoiceListener(ctx, s, voice.NewScriptRecognizer(file))
			defer listener.close()
		}

		err = runChatLoop(ctx, s, cmd.InOrStdin(), view, listener)
		if chatPersist {
			view.printf("Session saved as %s\n", s.ID())
		}
		return err
	},
}

// runChatLoop reads typed lines until EOF or /quit.
func runChatLoop(ctx context.Context, s *session.Session, in io.Reader, view *terminalView, listener *voiceListener) error {
	scanner := bufio.NewScanner(in)
	for {
		view.prompt()
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "/quit" || line == "/exit":
			return nil
		case strings.HasPrefix(line, "/audio"):
			enabled := strings.TrimSpace(strings.TrimPrefix(line, "/audio")) != "off"
			s.SetAudioEnabled(enabled)
			view.printf("(audio %s)\n", onOff(enabled))
			continue
		case line == "/voice":
			if listener == nil {
				view.Notice(voice.MessageUnsupported)
				continue
			}
			listener.listen()
			continue
		}

		if _, err := s.SendUserMessage(ctx, line); err != nil {
			if errors.Is(err, session.ErrAwaitingReply) {
				view.Notice(err.Error())
				continue
			}
			return err
		}
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

// voiceListener runs one capture per /voice request.
type voiceListener struct {
	ctx     context.Context
	capture *voice.Capture
	bridge  *session.VoiceBridge
}

func newVoiceListener(ctx context.Context, s *session.Session, recognizer voice.Recognizer) *voiceListener {
	bridge := session.NewVoiceBridge(ctx, s)
	return &voiceListener{ctx: ctx, capture: voice.NewCapture(recognizer, bridge), bridge: bridge}
}

// listen blocks until the capture stops listening.
func (l *voiceListener) listen() {
	select {
	case <-l.bridge.Stopped():
	default:
	}
	if err := l.capture.Start(l.ctx); err != nil {
		return
	}
	if !l.capture.Listening() {
		return
	}
	select {
	case <-l.bridge.Stopped():
	case <-l.ctx.Done():
	}
}

func (l *voiceListener) close() {
	_ = l.capture.Close()
}

// terminalView renders session events as plain lines.
type terminalView struct {
	w io.Writer

	mu      sync.Mutex
	session *session.Session
	interim bool
}

func (v *terminalView) attach(s *session.Session) {
	v.mu.Lock()
	v.session = s
	v.mu.Unlock()
}

func (v *terminalView) botName() string {
	if v.session == nil {
		return session.DefaultBotName
	}
	return v.session.BotName()
}

func (v *terminalView) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clearInterimLocked()
	_, _ = fmt.Fprintf(v.w, format, args...)
}

func (v *terminalView) prompt() {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, _ = fmt.Fprint(v.w, "> ")
}

func (v *terminalView) clearInterimLocked() {
	if v.interim {
		_, _ = fmt.Fprint(v.w, "\n")
		v.interim = false
	}
}

func (v *terminalView) MessageAppended(msg chat.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clearInterimLocked()

	stamp := msg.Timestamp.Format(time.Kitchen)
	if msg.IsBot() {
		_, _ = fmt.Fprintf(v.w, "[%s] %s: %s\n", stamp, v.botName(), msg.Text)
		return
	}
	_, _ = fmt.Fprintf(v.w, "[%s] you: %s\n", stamp, msg.Text)
}

func (v *terminalView) TypingChanged(typing bool) {
	if typing {
		v.printf("%s is typing...\n", v.botName())
	}
}

func (v *terminalView) InterimTranscript(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, _ = fmt.Fprintf(v.w, "\r(listening) %s", text)
	v.interim = true
}

func (v *terminalView) Notice(text string) {
	v.printf("! %s\n", text)
}

var _ session.Observer = (*terminalView)(nil)

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatVoiceScript, "voice-script", "", "Feed /voice from a file, one utterance per line")
	chatCmd.Flags().BoolVar(&chatPersist, "persist", false, "Record the conversation in the local store")
	chatCmd.Flags().BoolVar(&chatNoAudio, "no-audio", false, "Start with spoken replies off")
	chatCmd.Flags().StringSliceVar(&chatSpeakCommand, "speak-command", nil, "Text-to-speech program and args, e.g. espeak,-s,160")
	chatCmd.Flags().BoolVar(&chatSkipIntro, "skip-intro", false, "Skip the name and nickname introduction")
}
