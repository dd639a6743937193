package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/community-commons/internal/model"
)

const messageSelect = `SELECT m.id, m.sender_id, m.receiver_id, m.content, m.sent_at, m.is_read, m.is_active,
	s.username AS sender_username, r.username AS receiver_username
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	JOIN users r ON r.id = m.receiver_id`

// MessageRepo stores direct messages between users.
type MessageRepo struct{ DB *sqlx.DB }

func NewMessageRepo(db *sqlx.DB) *MessageRepo { return &MessageRepo{DB: db} }

// Create stores an unread message and returns its ID.
func (r *MessageRepo) Create(ctx context.Context, senderID, receiverID uint64, content string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO messages (sender_id, receiver_id, content, is_read, is_active) VALUES (?, ?, ?, 0, 1)",
		senderID, receiverID, content)
	if err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListInbox returns active messages received by userID, newest first.
func (r *MessageRepo) ListInbox(ctx context.Context, userID uint64) ([]model.MessageView, error) {
	var out []model.MessageView
	err := r.DB.SelectContext(ctx, &out,
		messageSelect+" WHERE m.is_active = 1 AND m.receiver_id = ? ORDER BY m.sent_at DESC, m.id DESC", userID)
	return out, err
}

// ListSent returns active messages sent by userID, newest first.
func (r *MessageRepo) ListSent(ctx context.Context, userID uint64) ([]model.MessageView, error) {
	var out []model.MessageView
	err := r.DB.SelectContext(ctx, &out,
		messageSelect+" WHERE m.is_active = 1 AND m.sender_id = ? ORDER BY m.sent_at DESC, m.id DESC", userID)
	return out, err
}

// MarkRead flags a message received by receiverID as read.  Marking an
// already read message again succeeds.
func (r *MessageRepo) MarkRead(ctx context.Context, id, receiverID uint64) error {
	var one int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM messages WHERE id = ? AND receiver_id = ? AND is_active = 1", id, receiverID).Scan(&one); err != nil {
		return notFoundOr(err, ErrMessageNotFound)
	}
	_, err := r.DB.ExecContext(ctx, "UPDATE messages SET is_read = 1 WHERE id = ?", id)
	return err
}

// SoftDelete hides a message the user sent or received.
func (r *MessageRepo) SoftDelete(ctx context.Context, id, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE messages SET is_active = 0 WHERE id = ? AND (sender_id = ? OR receiver_id = ?) AND is_active = 1",
		id, userID, userID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return requireAffected(res, ErrMessageNotFound)
}
