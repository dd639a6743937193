package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/community-commons/internal/model"
)

// CategoryRepo reads the category reference data.
type CategoryRepo struct{ DB *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

// ListActive returns active categories ordered by name.
func (r *CategoryRepo) ListActive(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	err := r.DB.SelectContext(ctx, &out,
		"SELECT id, name, description, is_active FROM categories WHERE is_active = 1 ORDER BY name")
	return out, err
}

// GetActiveByID returns ErrCategoryNotFound for unknown or retired categories.
func (r *CategoryRepo) GetActiveByID(ctx context.Context, id uint64) (*model.Category, error) {
	var c model.Category
	err := r.DB.GetContext(ctx, &c,
		"SELECT id, name, description, is_active FROM categories WHERE id = ? AND is_active = 1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
