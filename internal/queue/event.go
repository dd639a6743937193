// Package queue defines message payloads exchanged over the message broker
// and the consumer that persists audit events.
package queue

import "time"

// Queue names.  All queues are durable and use the default exchange.
const (
	AuditQueue             = "audit.events"
	VerificationQueue      = "user.verification"
	ResourceRequestedQueue = "resource.requested"
)

// AuditEvent is one entry for the audit log.  UserID 0 means anonymous.
type AuditEvent struct {
	UserID     uint64    `json:"user_id"`
	Action     string    `json:"action"`
	Details    string    `json:"details,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// VerificationRequestedEvent asks an external mailer to deliver an identity
// verification token.
type VerificationRequestedEvent struct {
	UserID    uint64    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ResourceRequestedEvent tells the resource owner that someone asked for
// their resource.
type ResourceRequestedEvent struct {
	RequestID         uint64    `json:"request_id"`
	ResourceID        uint64    `json:"resource_id"`
	ResourceTitle     string    `json:"resource_title"`
	OwnerID           uint64    `json:"owner_id"`
	RequesterID       uint64    `json:"requester_id"`
	RequesterUsername string    `json:"requester_username"`
	RequestedAt       time.Time `json:"requested_at"`
}
