// Package chat holds the message types shared by the proxy and the client session,
// along with the validation rules applied to every batch forwarded upstream.
package chat

import (
	"strings"
	"time"
)

// Sender identifies who authored a turn.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Wire sender names accepted by the proxy. "bot" and "assistant" are the same role.
const (
	WireSenderUser      = "user"
	WireSenderAssistant = "assistant"
	WireSenderBot       = "bot"
)

const (
	// MaxMessages bounds a single upstream batch.
	MaxMessages = 50
	// MaxTextLength bounds a trimmed message text, counted in code points.
	MaxTextLength = 1000
)

// Message is one turn of a conversation.
type Message struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// IsBot reports whether the turn came from the assistant.
func (m Message) IsBot() bool {
	return m.Sender == SenderBot
}

// WireMessage is the JSON shape exchanged with the proxy.
type WireMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// ChatRequest is the proxy request body.
type ChatRequest struct {
	Messages []WireMessage `json:"messages"`
}

// ChatResponse is the proxy success body.
type ChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the proxy failure body.
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// ToWire converts session turns into proxy wire messages. Bot turns are sent as "assistant".
func ToWire(messages []Message) []WireMessage {
	out := make([]WireMessage, 0, len(messages))
	for _, m := range messages {
		sender := WireSenderUser
		if m.Sender != SenderUser {
			sender = WireSenderAssistant
		}
		out = append(out, WireMessage{Sender: sender, Text: m.Text})
	}
	return out
}

// Role maps a validated wire sender onto a provider chat role.
func Role(sender string) string {
	if sender == WireSenderUser {
		return "user"
	}
	return "assistant"
}

// Tail returns the last n messages (all of them when n <= 0 or n >= len).
func Tail(messages []Message, n int) []Message {
	if n <= 0 || n >= len(messages) {
		out := make([]Message, len(messages))
		copy(out, messages)
		return out
	}
	out := make([]Message, n)
	copy(out, messages[len(messages)-n:])
	return out
}

// IsBlank reports whether text has no visible content.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
