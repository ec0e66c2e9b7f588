package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bffagent/bffagent/internal/ratelimit"
)

var _ ratelimit.Store = (*Store)(nil)

// GetCounter returns the stored window for key, or nil when none exists.
func (s *Store) GetCounter(ctx context.Context, key string) (*ratelimit.Counter, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var (
		count   int
		resetAt int64
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT request_count, reset_at FROM rate_limits WHERE client_key = ?`, key,
	).Scan(&count, &resetAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rate limit counter: %w", err)
	}

	return &ratelimit.Counter{Count: count, ResetAt: time.UnixMilli(resetAt)}, nil
}

// PutCounter upserts the window for key.
func (s *Store) PutCounter(ctx context.Context, key string, counter *ratelimit.Counter) error {
	if err := s.ready(); err != nil {
		return err
	}
	if counter == nil {
		return errors.New("rate limit counter is required")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO rate_limits (client_key, request_count, reset_at)
		VALUES (?, ?, ?)
		ON CONFLICT(client_key) DO UPDATE SET
			request_count = excluded.request_count,
			reset_at = excluded.reset_at
	`, key, counter.Count, counter.ResetAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put rate limit counter: %w", err)
	}
	return nil
}

// DeleteExpired removes windows that ended before now.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM rate_limits WHERE reset_at < ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired rate limits: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired rate limits: %w", err)
	}
	return int(n), nil
}

// RateLimitEntry is one stored client window.
type RateLimitEntry struct {
	ClientKey string    `json:"client_key" yaml:"client_key"`
	Count     int       `json:"count" yaml:"count"`
	ResetAt   time.Time `json:"reset_at" yaml:"reset_at"`
}

// RateLimitQuery selects counters for the admin commands.
type RateLimitQuery struct {
	All    bool
	Key    string
	Prefix string
}

func (q RateLimitQuery) Validate() error {
	if q.All || strings.TrimSpace(q.Key) != "" || strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return errors.New("must specify --all, --key, or --prefix")
}

func (q RateLimitQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	if q.All {
		return "", nil, nil
	}
	if key := strings.TrimSpace(q.Key); key != "" {
		return "WHERE client_key = ?", []any{key}, nil
	}
	return `WHERE client_key LIKE ? ESCAPE '\'`, []any{likeEscaper.Replace(strings.TrimSpace(q.Prefix)) + "%"}, nil
}

// likeEscaper makes LIKE wildcards in a prefix match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ListRateLimits returns the counters matching q ordered by client key.
func (s *Store) ListRateLimits(ctx context.Context, q RateLimitQuery) ([]RateLimitEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT client_key, request_count, reset_at
		FROM rate_limits
		%s
		ORDER BY client_key
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []RateLimitEntry{}
	for rows.Next() {
		var (
			entry   RateLimitEntry
			resetAt int64
		)
		if err := rows.Scan(&entry.ClientKey, &entry.Count, &resetAt); err != nil {
			return nil, fmt.Errorf("scan rate limit: %w", err)
		}
		entry.ResetAt = time.UnixMilli(resetAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	return entries, nil
}

// ResetRateLimits deletes the counters matching q and reports how many were removed.
func (s *Store) ResetRateLimits(ctx context.Context, q RateLimitQuery) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}

	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	res, err := s.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM rate_limits %s`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}
	return int(n), nil
}
