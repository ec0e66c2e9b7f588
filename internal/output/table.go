package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/bffagent/bffagent/internal/store"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

func (f *TableFormatter) FormatRateLimits(entries []store.RateLimitEntry) (string, error) {
	if len(entries) == 0 {
		return "(no stored rate limit state)", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"Client", "Requests", "Resets At"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.ClientKey, e.Count, e.ResetAt.UTC().Format(time.RFC3339)})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d client(s)", len(entries))})
	return t.Render(), nil
}

func (f *TableFormatter) FormatConversations(convs []store.Conversation) (string, error) {
	if len(convs) == 0 {
		return "(no stored conversations)", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Session", "Started", "Last Activity", "Messages"})
	for _, c := range convs {
		t.AppendRow(table.Row{
			c.ID,
			c.StartedAt.UTC().Format(time.RFC3339),
			c.UpdatedAt.UTC().Format(time.RFC3339),
			c.MessageCount,
		})
	}
	return t.Render(), nil
}

func (f *TableFormatter) FormatTranscript(tr *Transcript) (string, error) {
	if tr == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(tr.SessionID)
	t.AppendHeader(table.Row{"#", "Time", "From", "Text"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 72}})
	for _, m := range tr.Messages {
		t.AppendRow(table.Row{m.ID, m.Timestamp.Format("15:04:05"), senderLabel(m.Sender), m.Text})
	}
	return t.Render(), nil
}
