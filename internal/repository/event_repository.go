package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/community-commons/internal/model"
)

const eventSelect = `SELECT e.id, e.title, e.description, e.location, e.event_date, e.status, e.organizer_id,
	e.created_at, e.image_url, e.is_active, u.username AS organizer_username
	FROM events e JOIN users u ON u.id = e.organizer_id`

// EventRepo stores events and RSVPs.
type EventRepo struct{ DB *sqlx.DB }

func NewEventRepo(db *sqlx.DB) *EventRepo { return &EventRepo{DB: db} }

// Create inserts an active event and returns its ID.
func (r *EventRepo) Create(ctx context.Context, e model.Event) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO events (title, description, location, event_date, status, organizer_id, image_url, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		strings.TrimSpace(e.Title), strings.TrimSpace(e.Description), strings.TrimSpace(e.Location),
		e.EventDate.UTC(), model.EventActive, e.OrganizerID, e.ImageURL)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID returns an active event with its organizer's username.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.EventListing, error) {
	var e model.EventListing
	if err := r.DB.GetContext(ctx, &e, eventSelect+" WHERE e.id = ? AND e.is_active = 1", id); err != nil {
		return nil, notFoundOr(err, ErrEventNotFound)
	}
	return &e, nil
}

// ListUpcoming returns active, non-cancelled events dated at or after now,
// soonest first.
func (r *EventRepo) ListUpcoming(ctx context.Context, now time.Time) ([]model.EventListing, error) {
	var out []model.EventListing
	err := r.DB.SelectContext(ctx, &out,
		eventSelect+" WHERE e.is_active = 1 AND e.status = ? AND e.event_date >= ? ORDER BY e.event_date, e.id",
		model.EventActive, now.UTC())
	return out, err
}

// Cancel marks an event organised by organizerID as cancelled.
func (r *EventRepo) Cancel(ctx context.Context, id, organizerID uint64) error {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e.OrganizerID != organizerID {
		return ErrForbidden
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE events SET status = ? WHERE id = ? AND status = ?", model.EventCancelled, id, model.EventActive)
	if err != nil {
		return fmt.Errorf("cancel event: %w", err)
	}
	return requireAffected(res, ErrInvalidTransition)
}

// UpsertRSVP records the user's answer, replacing any earlier one.  The
// unique (event_id, user_id) key makes this a single atomic statement.
func (r *EventRepo) UpsertRSVP(ctx context.Context, eventID, userID uint64, status string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO event_rsvps (event_id, user_id, rsvp_status, rsvp_date, is_active)
		 VALUES (?, ?, ?, UTC_TIMESTAMP(), 1)
		 ON DUPLICATE KEY UPDATE rsvp_status = VALUES(rsvp_status), rsvp_date = VALUES(rsvp_date), is_active = 1`,
		eventID, userID, status)
	if err != nil {
		return fmt.Errorf("upsert rsvp: %w", err)
	}
	return nil
}

// GetRSVPStatus returns the user's current answer or "" when there is none.
func (r *EventRepo) GetRSVPStatus(ctx context.Context, eventID, userID uint64) (string, error) {
	var status string
	err := r.DB.GetContext(ctx, &status,
		"SELECT rsvp_status FROM event_rsvps WHERE event_id = ? AND user_id = ? AND is_active = 1", eventID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return status, err
}

// CountRSVPs tallies active answers per status.
func (r *EventRepo) CountRSVPs(ctx context.Context, eventID uint64) (model.RSVPCounts, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT rsvp_status, COUNT(*) FROM event_rsvps WHERE event_id = ? AND is_active = 1 GROUP BY rsvp_status", eventID)
	if err != nil {
		return model.RSVPCounts{}, err
	}
	defer rows.Close()

	var counts model.RSVPCounts
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return model.RSVPCounts{}, err
		}
		switch status {
		case model.RSVPGoing:
			counts.Going = n
		case model.RSVPMaybe:
			counts.Maybe = n
		case model.RSVPDeclined:
			counts.Declined = n
		}
	}
	return counts, rows.Err()
}

// notFoundOr maps sql.ErrNoRows to notFound and passes other errors through.
func notFoundOr(err, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return err
}
