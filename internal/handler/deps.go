// Package handler holds the HTTP handlers.  Handlers depend on the narrow
// interfaces below rather than on concrete repositories so they can be
// exercised with in-memory fakes.
package handler

import (
	"context"
	"time"

	"github.com/iliyamo/community-commons/internal/model"
	"github.com/iliyamo/community-commons/internal/queue"
)

type UserStore interface {
	Create(ctx context.Context, nu model.NewUser, cost int) (uint64, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetActiveByUsername(ctx context.Context, username string) (*model.User, error)
	TouchLastLogin(ctx context.Context, id uint64) error
	ApplyRating(ctx context.Context, id uint64, rating int) error
	UpdateProfile(ctx context.Context, id uint64, p model.ProfileUpdate) error
	SetVerificationToken(ctx context.Context, id uint64, tokenID string) error
	RedeemVerification(ctx context.Context, id uint64, tokenID string) error
}

type CategoryStore interface {
	ListActive(ctx context.Context) ([]model.Category, error)
	GetActiveByID(ctx context.Context, id uint64) (*model.Category, error)
}

type ResourceStore interface {
	Create(ctx context.Context, nr model.NewResource) (uint64, error)
	GetActiveByID(ctx context.Context, id uint64) (*model.Resource, error)
	ListActive(ctx context.Context) ([]model.ResourceListing, error)
	ListActiveByCategory(ctx context.Context, categoryID uint64) ([]model.ResourceListing, error)
	ListActiveByOwner(ctx context.Context, ownerID uint64) ([]model.ResourceListing, error)
	SetAvailability(ctx context.Context, id, ownerID uint64, available bool) error
	SoftDelete(ctx context.Context, id, ownerID uint64) error
}

type RequestStore interface {
	Create(ctx context.Context, resourceID, requesterID uint64, message string) (uint64, error)
	ListIncoming(ctx context.Context, ownerID uint64) ([]model.RequestDetail, error)
	ListOutgoing(ctx context.Context, requesterID uint64) ([]model.RequestDetail, error)
	Respond(ctx context.Context, requestID, ownerID uint64, accept bool, scheduled *time.Time) error
	Cancel(ctx context.Context, requestID, requesterID uint64) error
}

type MessageStore interface {
	Create(ctx context.Context, senderID, receiverID uint64, content string) (uint64, error)
	ListInbox(ctx context.Context, userID uint64) ([]model.MessageView, error)
	ListSent(ctx context.Context, userID uint64) ([]model.MessageView, error)
	MarkRead(ctx context.Context, id, receiverID uint64) error
	SoftDelete(ctx context.Context, id, userID uint64) error
}

type EventStore interface {
	Create(ctx context.Context, e model.Event) (uint64, error)
	GetByID(ctx context.Context, id uint64) (*model.EventListing, error)
	ListUpcoming(ctx context.Context, now time.Time) ([]model.EventListing, error)
	Cancel(ctx context.Context, id, organizerID uint64) error
	UpsertRSVP(ctx context.Context, eventID, userID uint64, status string) error
	GetRSVPStatus(ctx context.Context, eventID, userID uint64) (string, error)
	CountRSVPs(ctx context.Context, eventID uint64) (model.RSVPCounts, error)
}

// Auditor records an action in the audit trail.  It never fails the caller.
type Auditor interface {
	Record(ctx context.Context, userID uint64, action, details string)
}

// EventPublisher hands domain events to the broker.
type EventPublisher interface {
	VerificationRequested(ctx context.Context, ev queue.VerificationRequestedEvent) error
	ResourceRequested(ctx context.Context, ev queue.ResourceRequestedEvent) error
}
