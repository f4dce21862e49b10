package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/farmguide/internal/domain"
)

type MessageStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Add appends a message to the session's conversation, assigning its id and
// timestamp.
func (s *MessageStore) Add(ctx context.Context, sessionID string, role domain.Role, content string, fc domain.FarmingContext) (*domain.Message, error) {
	msg := &domain.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Context:   fc,
		CreatedAt: s.now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, context, created_at) VALUES (?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.SessionID, msg.Role, msg.Content, msg.Context, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}

	return msg, nil
}

func (s *MessageStore) ListBySession(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, context, created_at FROM messages
		WHERE session_id = ? ORDER BY created_at ASC, rowid ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer closeRows(rows)

	var msgs []*domain.Message
	for rows.Next() {
		msg := &domain.Message{}
		var role, fc string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &fc, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = domain.Role(role)
		msg.Context = domain.FarmingContext(fc)
		msgs = append(msgs, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return msgs, nil
}

// Clear removes the whole conversation for a session.
func (s *MessageStore) Clear(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM messages WHERE session_id = ?
	`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

// DeleteOlderThan prunes messages created before cutoff and reports how many
// rows went.
func (s *MessageStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM messages WHERE created_at < ?
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune messages: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
