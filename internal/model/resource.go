package model

import (
	"database/sql"
	"time"
)

// Resource is an item or service offered by a user.
type Resource struct {
	ID          uint64         `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	CategoryID  uint64         `db:"category_id"`
	Location    string         `db:"location"`
	ImageURL    sql.NullString `db:"image_url"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
	IsAvailable bool           `db:"is_available"`
	IsActive    bool           `db:"is_active"`
	OwnerID     uint64         `db:"owner_id"`
}

// ResourceListing is a resource joined with the names shown on listing pages.
type ResourceListing struct {
	Resource
	CategoryName  string `db:"category_name"`
	OwnerUsername string `db:"owner_username"`
}

// NewResource holds the fields supplied when posting a resource.
type NewResource struct {
	Title       string
	Description string
	CategoryID  uint64
	Location    string
	ImageURL    string
	OwnerID     uint64
}
