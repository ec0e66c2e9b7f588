package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError describes a malformed request batch. Message is safe to return to callers.
type ValidationError struct {
	Index   int
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(index int, format string, args ...any) *ValidationError {
	return &ValidationError{Index: index, Message: fmt.Sprintf(format, args...)}
}

// DecodeAndValidate parses a raw proxy request body and validates its messages.
//
// The body is inspected field by field so that type mismatches name the offending
// index instead of surfacing a generic JSON decode error.
func DecodeAndValidate(body []byte) ([]WireMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, invalid(-1, "Messages must be an array")
	}
	raw, ok := envelope["messages"]
	if !ok || !isJSONArray(raw) {
		return nil, invalid(-1, "Messages must be an array")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, invalid(-1, "Messages must be an array")
	}
	if len(items) == 0 {
		return nil, invalid(-1, "Messages array cannot be empty")
	}
	if len(items) > MaxMessages {
		return nil, invalid(-1, "Too many messages. Maximum %d messages allowed per request", MaxMessages)
	}

	messages := make([]WireMessage, 0, len(items))
	for i, item := range items {
		var fields map[string]json.RawMessage
		if !isJSONObject(item) || json.Unmarshal(item, &fields) != nil {
			return nil, invalid(i, "Message at index %d must be an object", i)
		}

		var sender string
		if rawSender, ok := fields["sender"]; !ok || json.Unmarshal(rawSender, &sender) != nil {
			return nil, invalidSender(i)
		}

		var text string
		if rawText, ok := fields["text"]; !ok || json.Unmarshal(rawText, &text) != nil {
			return nil, invalid(i, "Message at index %d must have a text property of type string", i)
		}

		messages = append(messages, WireMessage{Sender: sender, Text: text})
	}

	return Validate(messages)
}

// Validate checks a decoded batch and returns it with senders normalized and texts trimmed.
// The input slice is not modified.
func Validate(messages []WireMessage) ([]WireMessage, error) {
	if len(messages) == 0 {
		return nil, invalid(-1, "Messages array cannot be empty")
	}
	if len(messages) > MaxMessages {
		return nil, invalid(-1, "Too many messages. Maximum %d messages allowed per request", MaxMessages)
	}

	out := make([]WireMessage, 0, len(messages))
	for i, msg := range messages {
		sender, ok := normalizeSender(msg.Sender)
		if !ok {
			return nil, invalidSender(i)
		}

		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return nil, invalid(i, "Message at index %d has empty text", i)
		}
		if utf8.RuneCountInString(text) > MaxTextLength {
			return nil, invalid(i, "Message at index %d is too long. Maximum %d characters allowed", i, MaxTextLength)
		}

		out = append(out, WireMessage{Sender: sender, Text: text})
	}
	return out, nil
}

func invalidSender(i int) *ValidationError {
	return invalid(i, "Message at index %d has invalid sender. Must be either 'user' or 'assistant'", i)
}

func normalizeSender(sender string) (string, bool) {
	switch sender {
	case WireSenderUser:
		return WireSenderUser, true
	case WireSenderAssistant, WireSenderBot:
		return WireSenderAssistant, true
	default:
		return "", false
	}
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
