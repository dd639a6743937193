package model

import (
	"database/sql"
	"time"
)

// User represents an account as stored in the `users` table.  Nullable
// columns use the database/sql null wrappers so that a missing address or
// phone can be told apart from an empty one.
type User struct {
	ID                   uint64         `db:"id"`
	Username             string         `db:"username"`
	Email                string         `db:"email"`
	PasswordHash         string         `db:"password_hash"`
	FirstName            string         `db:"first_name"`
	LastName             string         `db:"last_name"`
	Address              sql.NullString `db:"address"`
	Phone                sql.NullString `db:"phone"`
	Location             sql.NullString `db:"location"`
	JoinDate             time.Time      `db:"join_date"`
	LastLogin            sql.NullTime   `db:"last_login"`
	IsActive             bool           `db:"is_active"`
	IsVerified           bool           `db:"is_verified"`
	VerificationToken    sql.NullString `db:"verification_token"`
	ResetToken           sql.NullString `db:"reset_token"`
	ResetTokenExpiration sql.NullTime   `db:"reset_token_expiration"`
	Rating               float64        `db:"rating"`
	RatingCount          uint32         `db:"rating_count"`
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// MinRating and MaxRating bound a single submitted rating.
const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r may be submitted as a rating.
func ValidRating(r int) bool { return r >= MinRating && r <= MaxRating }

// IncrementalMean folds one more value into a running average without the
// value history: (mean*count + v) / (count+1).
func IncrementalMean(mean float64, count uint32, v int) float64 {
	return (mean*float64(count) + float64(v)) / float64(count+1)
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Address   string
	Phone     string
	Location  string
}

// NewUser carries the registration form.  Password is plaintext and never
// stored; the repository hashes it.
type NewUser struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}
