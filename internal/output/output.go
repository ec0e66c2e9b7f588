// Package output renders stored rate limits and conversations for the CLI.
package output

import (
	"fmt"
	"strings"

	"github.com/bffagent/bffagent/internal/chat"
	"github.com/bffagent/bffagent/internal/store"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Transcript is one stored conversation with its turns.
type Transcript struct {
	SessionID string         `json:"session_id" yaml:"session_id"`
	Messages  []chat.Message `json:"messages" yaml:"messages"`
}

// Formatter renders CLI results.
type Formatter interface {
	FormatRateLimits(entries []store.RateLimitEntry) (string, error)
	FormatConversations(convs []store.Conversation) (string, error)
	FormatTranscript(t *Transcript) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// Extension returns the file extension used when writing format to a directory.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatMarkdown:
		return "md"
	default:
		return "txt"
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

func senderLabel(sender chat.Sender) string {
	if sender == chat.SenderUser {
		return "you"
	}
	return "bot"
}
