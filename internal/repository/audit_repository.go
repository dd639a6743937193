package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/community-commons/internal/model"
)

// maxAuditDetails matches the width of audit_log.details.
const maxAuditDetails = 4000

// AuditRepo appends to and reads from the audit log.
type AuditRepo struct{ DB *sqlx.DB }

func NewAuditRepo(db *sqlx.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Insert appends one entry.  userID 0 is stored as NULL; details longer than
// the column are truncated.  A zero at defaults to the database clock.
func (r *AuditRepo) Insert(ctx context.Context, userID uint64, action, details string, at time.Time) error {
	uid := sql.NullInt64{Int64: int64(userID), Valid: userID != 0}
	details = truncateRunes(details, maxAuditDetails)
	if at.IsZero() {
		_, err := r.DB.ExecContext(ctx,
			"INSERT INTO audit_log (user_id, action, details) VALUES (?, ?, ?)", uid, action, nullString(details))
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO audit_log (user_id, action, details, log_date) VALUES (?, ?, ?, ?)",
		uid, action, nullString(details), at.UTC())
	return err
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// ListByUser returns the user's most recent entries.
func (r *AuditRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.AuditLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []model.AuditLog
	err := r.DB.SelectContext(ctx, &out,
		"SELECT id, user_id, action, details, log_date FROM audit_log WHERE user_id = ? ORDER BY log_date DESC, id DESC LIMIT ?",
		userID, limit)
	return out, err
}
