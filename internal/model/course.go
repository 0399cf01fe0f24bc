package model

import "time"

// Course represents a purchasable course in the catalog
type Course struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Slug          string    `db:"slug" json:"slug"`
	Description   string    `db:"description" json:"description"`
	Price         int64     `db:"price" json:"price"` // minor currency units
	Currency      string    `db:"currency" json:"currency"`
	ThumbnailPath *string   `db:"thumbnail_path" json:"thumbnail_path,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// IsFree reports whether the course can be enrolled in without checkout.
func (c *Course) IsFree() bool {
	return c.Price <= 0
}
