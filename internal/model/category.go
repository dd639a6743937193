package model

import "database/sql"

// Category classifies resources.  Categories are reference data seeded by a
// migration.
type Category struct {
	ID          uint64         `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	IsActive    bool           `db:"is_active"`
}
