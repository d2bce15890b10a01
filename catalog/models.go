// Package catalog holds the product listing and its admin CRUD.
package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Product is a catalog record. Images are stored as a JSON array in a
// single column.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:prd"`

	ID          uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Title       string    `bun:"title,notnull" json:"title"`
	Description string    `bun:"description,nullzero" json:"description,omitempty"`
	Price       float64   `bun:"price,notnull" json:"price"`
	Images      []string  `bun:"images,nullzero" json:"images,omitempty"`
	Stock       int       `bun:"stock" json:"stock"`
	Category    string    `bun:"category,nullzero" json:"category,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}
