package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bffagent/bffagent/internal/chat"
)

// ErrConversationNotFound is returned when a session id has no stored turns.
var ErrConversationNotFound = errors.New("conversation not found")

// Conversation summarizes one stored chat session.
type Conversation struct {
	ID           string    `json:"id" yaml:"id"`
	StartedAt    time.Time `json:"started_at" yaml:"started_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
	MessageCount int       `json:"message_count" yaml:"message_count"`
}

// RecordMessage appends msg to the conversation sessionID, creating the conversation on first use.
// Re-recording the same message id is a no-op.
func (s *Store) RecordMessage(ctx context.Context, sessionID string, msg chat.Message) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("session id is required")
	}

	created := msg.Timestamp
	if created.IsZero() {
		created = time.Now()
	}
	at := created.UnixMilli()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (id, started_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = MAX(updated_at, excluded.updated_at)
	`, sessionID, at, at); err != nil {
		return fmt.Errorf("record conversation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO messages (session_id, message_id, sender, text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, msg.ID, string(msg.Sender), msg.Text, at); err != nil {
		return fmt.Errorf("record message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

// ListConversations returns stored sessions, most recently active first. limit <= 0 means no limit.
func (s *Store) ListConversations(ctx context.Context, limit int) ([]Conversation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT c.id, c.started_at, c.updated_at, COUNT(m.message_id)
		FROM conversations c
		LEFT JOIN messages m ON m.session_id = c.id
		GROUP BY c.id, c.started_at, c.updated_at
		ORDER BY c.updated_at DESC, c.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	out := []Conversation{}
	for rows.Next() {
		var (
			conv               Conversation
			started, updatedAt int64
		)
		if err := rows.Scan(&conv.ID, &started, &updatedAt, &conv.MessageCount); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conv.StartedAt = time.UnixMilli(started)
		conv.UpdatedAt = time.UnixMilli(updatedAt)
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return out, nil
}

// Messages returns the turns of sessionID in the order they were sent.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT message_id, sender, text, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY created_at, message_id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	out := []chat.Message{}
	for rows.Next() {
		var (
			msg     chat.Message
			sender  string
			created int64
		)
		if err := rows.Scan(&msg.ID, &sender, &msg.Text, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Sender = chat.Sender(sender)
		msg.Timestamp = time.UnixMilli(created)
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, sessionID)
	}
	return out, nil
}
