// This file defines repository methods for resources, the items and services
// users offer each other.  Resources are never physically deleted; the
// is_active flag hides them from every listing.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/community-commons/internal/model"
)

const listingSelect = `SELECT r.id, r.title, r.description, r.category_id, r.location, r.image_url,
	r.created_at, r.updated_at, r.is_available, r.is_active, r.owner_id,
	c.name AS category_name, u.username AS owner_username
	FROM resources r
	JOIN categories c ON c.id = r.category_id
	JOIN users u ON u.id = r.owner_id`

// ResourceRepo encapsulates all database queries related to resources.
type ResourceRepo struct{ DB *sqlx.DB }

func NewResourceRepo(db *sqlx.DB) *ResourceRepo { return &ResourceRepo{DB: db} }

// Create inserts an available, active resource and returns its ID.
func (r *ResourceRepo) Create(ctx context.Context, nr model.NewResource) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO resources (title, description, category_id, location, image_url, is_available, is_active, owner_id)
		 VALUES (?, ?, ?, ?, ?, 1, 1, ?)`,
		strings.TrimSpace(nr.Title), strings.TrimSpace(nr.Description), nr.CategoryID,
		strings.TrimSpace(nr.Location), nullString(nr.ImageURL), nr.OwnerID)
	if err != nil {
		return 0, fmt.Errorf("insert resource: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetActiveByID returns ErrResourceNotFound for unknown or soft-deleted
// resources.
func (r *ResourceRepo) GetActiveByID(ctx context.Context, id uint64) (*model.Resource, error) {
	var res model.Resource
	err := r.DB.GetContext(ctx, &res,
		`SELECT id, title, description, category_id, location, image_url, created_at, updated_at,
		        is_available, is_active, owner_id
		   FROM resources WHERE id = ? AND is_active = 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListActive returns every active resource, newest first.
func (r *ResourceRepo) ListActive(ctx context.Context) ([]model.ResourceListing, error) {
	var out []model.ResourceListing
	err := r.DB.SelectContext(ctx, &out, listingSelect+" WHERE r.is_active = 1 ORDER BY r.created_at DESC, r.id DESC")
	return out, err
}

// ListActiveByCategory narrows ListActive to one category.
func (r *ResourceRepo) ListActiveByCategory(ctx context.Context, categoryID uint64) ([]model.ResourceListing, error) {
	var out []model.ResourceListing
	err := r.DB.SelectContext(ctx, &out,
		listingSelect+" WHERE r.is_active = 1 AND r.category_id = ? ORDER BY r.created_at DESC, r.id DESC", categoryID)
	return out, err
}

// ListActiveByOwner returns the active resources a user has posted.
func (r *ResourceRepo) ListActiveByOwner(ctx context.Context, ownerID uint64) ([]model.ResourceListing, error) {
	var out []model.ResourceListing
	err := r.DB.SelectContext(ctx, &out,
		listingSelect+" WHERE r.is_active = 1 AND r.owner_id = ? ORDER BY r.created_at DESC, r.id DESC", ownerID)
	return out, err
}

// SetAvailability flips the availability flag of a resource owned by
// ownerID.  ErrResourceNotFound covers both missing and foreign resources.
func (r *ResourceRepo) SetAvailability(ctx context.Context, id, ownerID uint64, available bool) error {
	if err := r.ensureOwned(ctx, id, ownerID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE resources SET is_available = ? WHERE id = ? AND owner_id = ? AND is_active = 1",
		available, id, ownerID)
	return err
}

// SoftDelete hides a resource owned by ownerID from all listings.
func (r *ResourceRepo) SoftDelete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE resources SET is_active = 0 WHERE id = ? AND owner_id = ? AND is_active = 1", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	return requireAffected(res, ErrResourceNotFound)
}

func (r *ResourceRepo) ensureOwned(ctx context.Context, id, ownerID uint64) error {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM resources WHERE id = ? AND owner_id = ? AND is_active = 1", id, ownerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrResourceNotFound
	}
	return err
}
