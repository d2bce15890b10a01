// Package orders holds order placement and the per-user cart.
package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/shophub/shophub/catalog"
)

// OrderStatus is the order lifecycle state
type OrderStatus = string

const (
	// StatusPending is a freshly placed, unpaid order
	StatusPending OrderStatus = "pending"
	// StatusPaid means payment cleared
	StatusPaid OrderStatus = "paid"
	// StatusShipped means the order left the warehouse
	StatusShipped OrderStatus = "shipped"
	// StatusDelivered closes a successful order
	StatusDelivered OrderStatus = "delivered"
	// StatusCancelled closes an abandoned order
	StatusCancelled OrderStatus = "cancelled"
)

// ParseStatus returns the status when it is a known one
func ParseStatus(status string) (OrderStatus, bool) {
	switch status {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return status, true
	default:
		return "", false
	}
}

// Order is a placed order. Item prices are snapshotted at placement
// time, later catalog price changes never touch an existing order.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:ord"`

	ID     uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id"`
	UserID uuid.UUID   `bun:"user_id,notnull,type:uuid" json:"user_id"`
	Total  float64     `bun:"total,notnull" json:"total"`
	Status OrderStatus `bun:"status,notnull" json:"status"`

	ShippingAddress map[string]any `bun:"shipping_address,nullzero" json:"shipping_address,omitempty"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oit"`

	ID        uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id"`
	OrderID   uuid.UUID `bun:"order_id,notnull,type:uuid" json:"order_id"`
	ProductID uuid.UUID `bun:"product_id,notnull,type:uuid" json:"product_id"`
	Qty       int       `bun:"qty,notnull" json:"qty"`

	// Price is the unit price at placement time.
	Price float64 `bun:"price,notnull" json:"price"`

	Product *catalog.Product `bun:"rel:belongs-to,join:product_id=id" json:"product,omitempty"`
}

// CartItem is one line of a user's cart. One row per (user, product).
type CartItem struct {
	bun.BaseModel `bun:"table:cart_items,alias:cit"`

	ID        uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id"`
	ProductID uuid.UUID `bun:"product_id,notnull,type:uuid" json:"product_id"`
	Qty       int       `bun:"qty,notnull" json:"qty"`

	Product *catalog.Product `bun:"rel:belongs-to,join:product_id=id" json:"product,omitempty"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
