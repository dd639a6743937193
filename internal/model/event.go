package model

import (
	"database/sql"
	"time"
)

// Event status values.
const (
	EventActive    = "active"
	EventCancelled = "cancelled"
)

// RSVP status values a user may choose.
const (
	RSVPPending  = "pending"
	RSVPGoing    = "going"
	RSVPMaybe    = "maybe"
	RSVPDeclined = "declined"
)

// ValidRSVPStatus reports whether s can be submitted by a user.
func ValidRSVPStatus(s string) bool {
	return s == RSVPGoing || s == RSVPMaybe || s == RSVPDeclined
}

// Event is a scheduled community gathering.
type Event struct {
	ID          uint64         `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Location    string         `db:"location"`
	EventDate   time.Time      `db:"event_date"`
	Status      string         `db:"status"`
	OrganizerID uint64         `db:"organizer_id"`
	CreatedAt   time.Time      `db:"created_at"`
	ImageURL    sql.NullString `db:"image_url"`
	IsActive    bool           `db:"is_active"`
}

// EventListing adds the organizer's username.
type EventListing struct {
	Event
	OrganizerUsername string `db:"organizer_username"`
}

// EventRSVP is one user's answer to an event invitation.
type EventRSVP struct {
	ID         uint64    `db:"id"`
	EventID    uint64    `db:"event_id"`
	UserID     uint64    `db:"user_id"`
	RSVPStatus string    `db:"rsvp_status"`
	RSVPDate   time.Time `db:"rsvp_date"`
	IsActive   bool      `db:"is_active"`
}

// RSVPCounts summarises answers per status.
type RSVPCounts struct {
	Going    int
	Maybe    int
	Declined int
}
