package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Orders is the order store contract.
type Orders interface {
	repository.Repository[*Order]

	// CreateWithItemsTx persists the order and its lines in the given
	// transaction.
	CreateWithItemsTx(ctx context.Context, tx bun.IDB, order *Order) (*Order, error)

	// ListByUser returns the user's orders, newest first, with items
	// and their products attached.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)
}

// Carts is the cart store contract. Put is idempotent per
// (user, product): repeating it overwrites the quantity.
type Carts interface {
	GetItems(ctx context.Context, userID uuid.UUID) ([]*CartItem, error)
	PutItem(ctx context.Context, item *CartItem) (*CartItem, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
}

// RepositoryManager exposes the order-side repositories plus
// transaction scoping.
type RepositoryManager interface {
	Orders() Orders
	Carts() Carts
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
}

type mngr struct {
	db     *bun.DB
	orders Orders
	carts  Carts
}

// NewRepositoryManager wires the repositories over a shared bun.DB.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:     db,
		orders: NewOrdersRepository(db),
		carts:  NewCartsRepository(db),
	}
}

func (m mngr) Orders() Orders { return m.orders }
func (m mngr) Carts() Carts   { return m.carts }

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

type ordersRepo struct {
	repository.Repository[*Order]
	db *bun.DB
}

var _ Orders = (*ordersRepo)(nil)

// NewOrdersRepository builds the bun-backed order store.
func NewOrdersRepository(db *bun.DB) Orders {
	repo := repository.NewRepository[*Order](db, repository.ModelHandlers[*Order]{
		NewRecord: func() *Order { return &Order{} },
		GetID: func(o *Order) uuid.UUID {
			if o == nil {
				return uuid.Nil
			}
			return o.ID
		},
		SetID: func(o *Order, id uuid.UUID) {
			if o != nil {
				o.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &ordersRepo{
		Repository: repo,
		db:         db,
	}
}

func (r *ordersRepo) CreateWithItemsTx(ctx context.Context, tx bun.IDB, order *Order) (*Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = StatusPending
	}

	if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
	}

	if len(order.Items) > 0 {
		if _, err := tx.NewInsert().Model(&order.Items).Exec(ctx); err != nil {
			return nil, err
		}
	}

	return order, nil
}

func (r *ordersRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	var records []*Order

	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Relation("Items").
		Relation("Items.Product").
		OrderExpr("?TableAlias.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

type cartsRepo struct {
	db *bun.DB
}

var _ Carts = (*cartsRepo)(nil)

// NewCartsRepository builds the bun-backed cart store.
func NewCartsRepository(db *bun.DB) Carts {
	return &cartsRepo{db: db}
}

func (r *cartsRepo) GetItems(ctx context.Context, userID uuid.UUID) ([]*CartItem, error) {
	var records []*CartItem

	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Relation("Product").
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *cartsRepo) PutItem(ctx context.Context, item *CartItem) (*CartItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	now := time.Now()
	item.UpdatedAt = &now

	_, err := r.db.NewInsert().
		Model(item).
		On("CONFLICT (user_id, product_id) DO UPDATE").
		Set("qty = EXCLUDED.qty").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return item, nil
}

func (r *cartsRepo) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*CartItem)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.product_id = ?", productID).
		Exec(ctx)
	return err
}
