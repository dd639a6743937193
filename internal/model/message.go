package model

import "time"

// MaxMessageLength bounds the content of a direct message.
const MaxMessageLength = 2000

// Message is a direct message between two users.
type Message struct {
	ID         uint64    `db:"id"`
	SenderID   uint64    `db:"sender_id"`
	ReceiverID uint64    `db:"receiver_id"`
	Content    string    `db:"content"`
	SentAt     time.Time `db:"sent_at"`
	IsRead     bool      `db:"is_read"`
	IsActive   bool      `db:"is_active"`
}

// MessageView is a message with both usernames resolved.
type MessageView struct {
	Message
	SenderUsername   string `db:"sender_username"`
	ReceiverUsername string `db:"receiver_username"`
}
