package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateConversation(ctx context.Context, c *Conversation) error {
	query := `INSERT INTO conversations (id, subject, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Subject, c.OwnerID, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *Repository) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	query := `SELECT id, subject, owner_id, created_at, updated_at FROM conversations WHERE id = $1`
	c := &Conversation{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Subject, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) ListConversations(ctx context.Context, ownerID string) ([]Conversation, error) {
	query := `SELECT id, subject, owner_id, created_at, updated_at FROM conversations
		WHERE ($1 = '' OR owner_id = $1)
		ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Subject, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteConversation relies on ON DELETE CASCADE for messages and reads.
func (r *Repository) DeleteConversation(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// CreateMessage inserts the message and bumps the conversation's updated_at
// in one transaction.
func (r *Repository) CreateMessage(ctx context.Context, m *Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO messages (id, conversation_id, sender_is_admin, sender_id, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, query, m.ID, m.ConversationID, m.SenderIsAdmin, m.SenderID, m.Message, m.Status, m.CreatedAt, m.UpdatedAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = $1 WHERE id = $2`, m.CreatedAt, m.ConversationID)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if err := expectRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repository) GetMessage(ctx context.Context, conversationID, id string) (*Message, error) {
	query := `SELECT id, conversation_id, sender_is_admin, sender_id, message, status, created_at, updated_at
		FROM messages WHERE id = $1 AND conversation_id = $2`
	m := &Message{}
	err := r.db.QueryRowContext(ctx, query, id, conversationID).
		Scan(&m.ID, &m.ConversationID, &m.SenderIsAdmin, &m.SenderID, &m.Message, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Repository) UpdateMessage(ctx context.Context, m *Message) error {
	query := `UPDATE messages SET message = $1, status = $2, updated_at = $3
		WHERE id = $4 AND conversation_id = $5`
	res, err := r.db.ExecContext(ctx, query, m.Message, m.Status, m.UpdatedAt, m.ID, m.ConversationID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *Repository) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	query := `SELECT id, conversation_id, sender_is_admin, sender_id, message, status, created_at, updated_at
		FROM messages
		WHERE conversation_id = $1 AND status <> 'deleted'
		ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderIsAdmin, &m.SenderID, &m.Message, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	query := `INSERT INTO conversation_reads (conversation_id, user_id, last_read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id, user_id) DO UPDATE SET last_read_at = EXCLUDED.last_read_at`
	_, err := r.db.ExecContext(ctx, query, conversationID, userID, at)
	return err
}

func (r *Repository) CountUnread(ctx context.Context, conversationID, userID string, readerIsAdmin bool) (int, error) {
	query := `SELECT COUNT(*) FROM messages m
		LEFT JOIN conversation_reads r ON r.conversation_id = m.conversation_id AND r.user_id = $2
		WHERE m.conversation_id = $1
		  AND m.status <> 'deleted'
		  AND m.sender_is_admin <> $3
		  AND (r.last_read_at IS NULL OR m.created_at > r.last_read_at)`
	var n int
	err := r.db.QueryRowContext(ctx, query, conversationID, userID, readerIsAdmin).Scan(&n)
	return n, err
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
