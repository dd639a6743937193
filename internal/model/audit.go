package model

import (
	"database/sql"
	"time"
)

// AuditLog is one recorded action.  UserID is null for anonymous actions.
type AuditLog struct {
	ID      uint64         `db:"id"`
	UserID  sql.NullInt64  `db:"user_id"`
	Action  string         `db:"action"`
	Details sql.NullString `db:"details"`
	LogDate time.Time      `db:"log_date"`
}
