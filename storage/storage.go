// Package storage opens the database and creates the schema.
package storage

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/shophub/shophub/auth"
	"github.com/shophub/shophub/catalog"
	"github.com/shophub/shophub/orders"
)

// Open connects to the sqlite database behind the DSN.
func Open(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

// CreateSchema creates every table the application uses. Idempotent.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*auth.User)(nil),
		(*catalog.Product)(nil),
		(*orders.Order)(nil),
		(*orders.OrderItem)(nil),
		(*orders.CartItem)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	// conflict target for the cart upsert
	if _, err := db.NewCreateIndex().
		Model((*orders.CartItem)(nil)).
		Index("cart_items_user_product_idx").
		Unique().
		Column("user_id", "product_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}

	return nil
}
