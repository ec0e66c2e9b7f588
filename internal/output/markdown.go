package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/bffagent/bffagent/internal/store"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) FormatRateLimits(entries []store.RateLimitEntry) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Rate limits\n\n")
	sb.WriteString("| Client | Requests | Resets At |\n")
	sb.WriteString("|--------|----------|-----------|\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n",
			escapeMarkdownCell(e.ClientKey), e.Count, e.ResetAt.UTC().Format(time.RFC3339)))
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatConversations(convs []store.Conversation) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Conversations\n\n")
	sb.WriteString("| Session | Started | Messages |\n")
	sb.WriteString("|---------|---------|----------|\n")
	for _, c := range convs {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n",
			escapeMarkdownCell(c.ID), c.StartedAt.UTC().Format(time.RFC3339), c.MessageCount))
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatTranscript(t *Transcript) (string, error) {
	if t == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Conversation %s\n\n", escapeMarkdownCell(t.SessionID)))
	for _, m := range t.Messages {
		sb.WriteString(fmt.Sprintf("**%s** (%s): %s\n\n",
			senderLabel(m.Sender), m.Timestamp.Format("15:04:05"), strings.TrimSpace(m.Text)))
	}
	return strings.TrimRight(sb.String(), "\n") + "\n", nil
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	return strings.ReplaceAll(value, "\n", " ")
}
