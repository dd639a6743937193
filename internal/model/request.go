package model

import (
	"database/sql"
	"time"
)

// Request status values.  A request starts pending and is answered once.
const (
	RequestPending   = "pending"
	RequestAccepted  = "accepted"
	RequestDeclined  = "declined"
	RequestCancelled = "cancelled"
)

// Request is a claim made by a user on someone else's resource.
type Request struct {
	ID            uint64         `db:"id"`
	ResourceID    uint64         `db:"resource_id"`
	RequesterID   uint64         `db:"requester_id"`
	Message       sql.NullString `db:"message"`
	Status        string         `db:"status"`
	RequestDate   time.Time      `db:"request_date"`
	ResponseDate  sql.NullTime   `db:"response_date"`
	ScheduledDate sql.NullTime   `db:"scheduled_date"`
	IsActive      bool           `db:"is_active"`
}

// RequestDetail joins a request with its resource title and both parties.
type RequestDetail struct {
	Request
	ResourceTitle     string `db:"resource_title"`
	ResourceOwnerID   uint64 `db:"resource_owner_id"`
	RequesterUsername string `db:"requester_username"`
	OwnerUsername     string `db:"owner_username"`
}

// IsPending reports whether the request still awaits an answer.
func (r *Request) IsPending() bool { return r.Status == RequestPending }
