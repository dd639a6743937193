package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/community-commons/internal/database"
	"github.com/iliyamo/community-commons/internal/model"
	"github.com/iliyamo/community-commons/internal/utils"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, address, phone, location,
	join_date, last_login, is_active, is_verified, verification_token, reset_token, reset_token_expiration,
	rating, rating_count`

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// Create registers a user and returns its ID.  Username and email are
// checked up front so the caller gets a precise error; the unique indexes
// still decide the outcome when two registrations race, and a duplicate-key
// failure on insert maps to the same sentinel errors.
func (r *UserRepo) Create(ctx context.Context, nu model.NewUser, cost int) (uint64, error) {
	nu.Username = strings.TrimSpace(nu.Username)
	nu.Email = strings.ToLower(strings.TrimSpace(nu.Email))

	if taken, err := r.exists(ctx, "username", nu.Username); err != nil {
		return 0, err
	} else if taken {
		return 0, ErrUsernameExists
	}
	if taken, err := r.exists(ctx, "email", nu.Email); err != nil {
		return 0, err
	} else if taken {
		return 0, ErrEmailExists
	}

	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, first_name, last_name, is_active, is_verified, rating, rating_count)
		 VALUES (?, ?, ?, ?, ?, 1, 0, 0, 0)`,
		nu.Username, nu.Email, hash, strings.TrimSpace(nu.FirstName), strings.TrimSpace(nu.LastName))
	if err != nil {
		if dup, key := database.IsDuplicateKey(err); dup {
			if key == "uq_users_email" {
				return 0, ErrEmailExists
			}
			return 0, ErrUsernameExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// exists reports whether a user row with column = value is present.  column
// is always one of the fixed names used by Create.
func (r *UserRepo) exists(ctx context.Context, column, value string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE "+column+" = ? LIMIT 1", value).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s: %w", column, err)
	}
	return true, nil
}

// GetByID fetches a user by id regardless of the active flag.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
}

// GetActiveByUsername fetches an active user by exact username.
func (r *UserRepo) GetActiveByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = ? AND is_active = 1 LIMIT 1",
		strings.TrimSpace(username))
}

func (r *UserRepo) getOne(ctx context.Context, q string, args ...any) (*model.User, error) {
	var u model.User
	if err := r.DB.GetContext(ctx, &u, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// TouchLastLogin records a successful login.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_login = UTC_TIMESTAMP() WHERE id = ?", id)
	return err
}

// ApplyRating folds a rating into the user's running mean in one statement.
// MySQL evaluates single-table SET assignments left to right, so the rating
// expression still sees the old rating_count.  Concurrent submissions are
// serialised by the row lock instead of racing a read-then-write.
func (r *UserRepo) ApplyRating(ctx context.Context, id uint64, rating int) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users
		    SET rating = (rating * rating_count + ?) / (rating_count + 1),
		        rating_count = rating_count + 1
		  WHERE id = ? AND is_active = 1`,
		rating, id)
	if err != nil {
		return fmt.Errorf("apply rating: %w", err)
	}
	return requireAffected(res, ErrUserNotFound)
}

// UpdateProfile stores the editable profile fields.  Empty optional fields
// are stored as NULL.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p model.ProfileUpdate) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, address = ?, phone = ?, location = ?
		  WHERE id = ? AND is_active = 1`,
		strings.TrimSpace(p.FirstName), strings.TrimSpace(p.LastName),
		nullString(p.Address), nullString(p.Phone), nullString(p.Location), id)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	// MySQL reports 0 affected rows when nothing changed, so only a missing
	// user is an error.
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SetVerificationToken stores the id of the latest issued verification
// token, invalidating any earlier one.
func (r *UserRepo) SetVerificationToken(ctx context.Context, id uint64, tokenID string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET verification_token = ? WHERE id = ? AND is_active = 1", tokenID, id)
	if err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}
	return requireAffected(res, ErrUserNotFound)
}

// RedeemVerification marks the user verified if tokenID is the currently
// stored token and clears it, so each token works at most once.
func (r *UserRepo) RedeemVerification(ctx context.Context, id uint64, tokenID string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET is_verified = 1, verification_token = NULL
		  WHERE id = ? AND verification_token = ? AND is_active = 1`,
		id, tokenID)
	if err != nil {
		return fmt.Errorf("redeem verification: %w", err)
	}
	return requireAffected(res, ErrTokenNotRedeemable)
}

// requireAffected returns notFound when res touched no rows.
func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
