package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// DefaultWordDelay paces words from a ScriptRecognizer like live speech.
const DefaultWordDelay = 150 * time.Millisecond

// ScriptRecognizer is a deterministic Recognizer fed from text, one utterance per line.
// Words of each line arrive as growing interim results. Lines starting with "!"
// inject recognizer errors: "!not-allowed", "!audio-capture", "!unsupported",
// "!aborted", or any other "!code" as a transient failure.
type ScriptRecognizer struct {
	WordDelay time.Duration

	mu      sync.Mutex
	scanner *bufio.Scanner
	pending string
	peeked  bool
	stop    chan struct{}
	running bool
}

// NewScriptRecognizer reads utterances from r.
func NewScriptRecognizer(r io.Reader) *ScriptRecognizer {
	return &ScriptRecognizer{WordDelay: DefaultWordDelay, scanner: bufio.NewScanner(r)}
}

// Exhausted reports whether every line has been consumed.
func (s *ScriptRecognizer) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peekLocked() == ""
}

// Start emits the next line, superseding any utterance still running. Directives
// that fail at startup are returned directly.
func (s *ScriptRecognizer) Start(ctx context.Context, sink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		close(s.stop)
		s.running = false
	}

	line := s.peekLocked()
	if line == "" {
		return fmt.Errorf("%w: script exhausted", ErrUnsupported)
	}
	s.peeked = false

	if strings.HasPrefix(line, "!") {
		switch err := directiveError(line); err {
		case ErrUnsupported, ErrPermissionDenied, ErrNoDevice:
			return err
		}
	}

	stop := make(chan struct{})
	s.stop = stop
	s.running = true
	go s.emit(ctx, sink, line, stop)
	return nil
}

// Stop ends the current utterance; the sink receives End.
func (s *ScriptRecognizer) Stop() error {
	s.halt()
	return nil
}

// Abort ends the current utterance immediately.
func (s *ScriptRecognizer) Abort() error {
	s.halt()
	return nil
}

func (s *ScriptRecognizer) halt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		close(s.stop)
		s.running = false
	}
}

// peekLocked returns the next utterance without consuming it, or "" at end of input.
func (s *ScriptRecognizer) peekLocked() string {
	if s.peeked {
		return s.pending
	}
	s.pending = ""
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			s.pending = line
			break
		}
	}
	s.peeked = true
	return s.pending
}

func (s *ScriptRecognizer) emit(ctx context.Context, sink Sink, line string, stop <-chan struct{}) {
	defer sink.End()

	if strings.HasPrefix(line, "!") {
		sink.Error(directiveError(line))
		s.halt()
		return
	}

	words := strings.Fields(line)
	for i := range words {
		if !s.wait(ctx, stop) {
			return
		}
		sink.Result(strings.Join(words[:i+1], " "), i == len(words)-1)
	}

	select {
	case <-ctx.Done():
	case <-stop:
	}
}

func (s *ScriptRecognizer) wait(ctx context.Context, stop <-chan struct{}) bool {
	timer := time.NewTimer(s.WordDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-stop:
		return false
	case <-timer.C:
		return true
	}
}

func directiveError(line string) error {
	switch code := strings.TrimPrefix(line, "!"); code {
	case "not-allowed":
		return ErrPermissionDenied
	case "audio-capture":
		return ErrNoDevice
	case "unsupported":
		return ErrUnsupported
	case "aborted":
		return ErrAborted
	default:
		return fmt.Errorf("recognizer error: %s", code)
	}
}
