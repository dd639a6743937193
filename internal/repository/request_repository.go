package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/community-commons/internal/model"
)

const requestDetailSelect = `SELECT q.id, q.resource_id, q.requester_id, q.message, q.status, q.request_date,
	q.response_date, q.scheduled_date, q.is_active,
	r.title AS resource_title, r.owner_id AS resource_owner_id,
	ru.username AS requester_username, ou.username AS owner_username
	FROM requests q
	JOIN resources r ON r.id = q.resource_id
	JOIN users ru ON ru.id = q.requester_id
	JOIN users ou ON ou.id = r.owner_id`

// RequestRepo persists requests and their status transitions.
type RequestRepo struct{ DB *sqlx.DB }

func NewRequestRepo(db *sqlx.DB) *RequestRepo { return &RequestRepo{DB: db} }

// Create inserts a pending request and returns its ID.
func (r *RequestRepo) Create(ctx context.Context, resourceID, requesterID uint64, message string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO requests (resource_id, requester_id, message, status, is_active)
		 VALUES (?, ?, ?, ?, 1)`,
		resourceID, requesterID, nullString(message), model.RequestPending)
	if err != nil {
		return 0, fmt.Errorf("insert request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListIncoming returns active requests made on resources owned by ownerID.
func (r *RequestRepo) ListIncoming(ctx context.Context, ownerID uint64) ([]model.RequestDetail, error) {
	var out []model.RequestDetail
	err := r.DB.SelectContext(ctx, &out,
		requestDetailSelect+" WHERE q.is_active = 1 AND r.owner_id = ? ORDER BY q.request_date DESC, q.id DESC", ownerID)
	return out, err
}

// ListOutgoing returns active requests made by requesterID.
func (r *RequestRepo) ListOutgoing(ctx context.Context, requesterID uint64) ([]model.RequestDetail, error) {
	var out []model.RequestDetail
	err := r.DB.SelectContext(ctx, &out,
		requestDetailSelect+" WHERE q.is_active = 1 AND q.requester_id = ? ORDER BY q.request_date DESC, q.id DESC", requesterID)
	return out, err
}

// Respond accepts or declines a pending request on behalf of the resource
// owner.  Accepting also marks the resource unavailable.  Both updates run in
// one transaction with the request row locked, so two owners' tabs cannot
// answer the same request twice.
func (r *RequestRepo) Respond(ctx context.Context, requestID, ownerID uint64, accept bool, scheduled *time.Time) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var row struct {
		ResourceID uint64 `db:"resource_id"`
		Status     string `db:"status"`
		OwnerID    uint64 `db:"owner_id"`
	}
	err = tx.GetContext(ctx, &row,
		`SELECT q.resource_id, q.status, r.owner_id
		   FROM requests q JOIN resources r ON r.id = q.resource_id
		  WHERE q.id = ? AND q.is_active = 1
		  FOR UPDATE`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRequestNotFound
	}
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}
	if row.OwnerID != ownerID {
		return ErrForbidden
	}
	if row.Status != model.RequestPending {
		return ErrInvalidTransition
	}

	status := model.RequestDeclined
	if accept {
		status = model.RequestAccepted
	}
	var sched sql.NullTime
	if scheduled != nil {
		sched = sql.NullTime{Time: scheduled.UTC(), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE requests SET status = ?, response_date = UTC_TIMESTAMP(), scheduled_date = ? WHERE id = ?",
		status, sched, requestID); err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if accept {
		if _, err := tx.ExecContext(ctx,
			"UPDATE resources SET is_available = 0 WHERE id = ?", row.ResourceID); err != nil {
			return fmt.Errorf("update resource: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Cancel withdraws a pending request made by requesterID.
func (r *RequestRepo) Cancel(ctx context.Context, requestID, requesterID uint64) error {
	var row struct {
		RequesterID uint64 `db:"requester_id"`
		Status      string `db:"status"`
	}
	err := r.DB.GetContext(ctx, &row,
		"SELECT requester_id, status FROM requests WHERE id = ? AND is_active = 1", requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRequestNotFound
	}
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}
	if row.RequesterID != requesterID {
		return ErrForbidden
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE requests SET status = ?, response_date = UTC_TIMESTAMP()
		  WHERE id = ? AND requester_id = ? AND status = ?`,
		model.RequestCancelled, requestID, requesterID, model.RequestPending)
	if err != nil {
		return fmt.Errorf("cancel request: %w", err)
	}
	return requireAffected(res, ErrInvalidTransition)
}
