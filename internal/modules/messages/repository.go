// Package messages keeps the local chat transcript.
package messages

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/domain"
)

// DefaultLimit is the page size used when callers do not ask for one
const DefaultLimit = 50

// Fixed-width layout so that text ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Repository stores messages in the messages table of messages.db
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a message repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repository", "messages").Logger(),
	}
}

// Insert adds a message
func (r *Repository) Insert(ctx context.Context, role, content string, timestamp time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (role, content, timestamp, created_at)
		VALUES (?, ?, ?, ?)
	`, role, content, timestamp.UTC().Format(timeLayout), r.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// FetchRecent returns up to limit messages, newest first
func (r *Repository) FetchRecent(ctx context.Context, limit int) ([]domain.Message, error) {
	return r.query(ctx, `
		SELECT id, role, content, timestamp FROM messages
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, normalizeLimit(limit))
}

// FetchByRole returns up to limit messages of one role, newest first
func (r *Repository) FetchByRole(ctx context.Context, role string, limit int) ([]domain.Message, error) {
	return r.query(ctx, `
		SELECT id, role, content, timestamp FROM messages
		WHERE role = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, role, normalizeLimit(limit))
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	out := []domain.Message{}
	for rows.Next() {
		var id int64
		var m domain.Message
		var ts string
		if err := rows.Scan(&id, &m.Role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if m.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("invalid timestamp for message %d: %w", id, err)
		}
		m.ID = fmt.Sprintf("%d", id)
		out = append(out, m)
	}
	return out, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
