package orders

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/shophub/shophub/catalog"
	"github.com/shophub/shophub/logging"
)

// Mailer is the slice of the notification dispatcher order placement
// needs.
type Mailer interface {
	SendOrderConfirmationEmail(ctx context.Context, to, name, orderID string, total float64) error
}

// ErrNoItems rejects an order with an empty item list.
var ErrNoItems = goerrors.New("No items", goerrors.CategoryValidation).
	WithTextCode("NO_ITEMS")

// PlaceOrderItem is one requested line: a product reference and a
// quantity.
type PlaceOrderItem struct {
	ProductID uuid.UUID `json:"product"`
	Qty       int       `json:"qty"`
}

// PlaceOrderMessage carries the input for placing an order. Email and
// Name feed the confirmation message only.
type PlaceOrderMessage struct {
	UserID          uuid.UUID        `json:"user_id"`
	Email           string           `json:"email"`
	Name            string           `json:"name"`
	Items           []PlaceOrderItem `json:"items"`
	ShippingAddress map[string]any   `json:"shipping_address"`

	OnResponse func(order *Order)
}

// PlaceOrderHandler resolves each product, snapshots unit prices,
// computes the total server-side and persists order plus lines in one
// transaction. Client-supplied prices are never trusted.
type PlaceOrderHandler struct {
	repo     RepositoryManager
	products catalog.Products
	mailer   Mailer
	logger   logging.Logger
}

// NewPlaceOrderHandler will create a new PlaceOrderHandler
func NewPlaceOrderHandler(repo RepositoryManager, products catalog.Products, mailer Mailer, logger logging.Logger) *PlaceOrderHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &PlaceOrderHandler{
		repo:     repo,
		products: products,
		mailer:   mailer,
		logger:   logger,
	}
}

// Execute runs the order placement flow.
func (h *PlaceOrderHandler) Execute(ctx context.Context, event PlaceOrderMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return h.execute(ctx, event)
	}
}

func (h *PlaceOrderHandler) execute(ctx context.Context, event PlaceOrderMessage) error {
	if len(event.Items) == 0 {
		return ErrNoItems
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	order := &Order{
		UserID:          event.UserID,
		Status:          StatusPending,
		ShippingAddress: event.ShippingAddress,
	}

	// resolve and price the items before the transaction opens; only
	// the insert needs atomicity, and the products repo reads through
	// its own connection
	for _, requested := range event.Items {
		product, err := h.products.GetByID(ctx, requested.ProductID.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return goerrors.New("Invalid product "+requested.ProductID.String(), goerrors.CategoryValidation).
					WithTextCode("INVALID_PRODUCT")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load product")
		}

		qty := requested.Qty
		if qty < 1 {
			qty = 1
		}

		order.Items = append(order.Items, &OrderItem{
			ProductID: product.ID,
			Qty:       qty,
			Price:     product.Price,
		})
		order.Total += product.Price * float64(qty)
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Orders().CreateWithItemsTx(ctx, tx, order); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist order")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if h.mailer != nil && event.Email != "" {
		if err := h.mailer.SendOrderConfirmationEmail(ctx, event.Email, event.Name, order.ID.String(), order.Total); err != nil {
			h.logger.Error("failed to send order confirmation for %s: %v", order.ID, err)
		}
	}

	if event.OnResponse != nil {
		event.OnResponse(order)
	}

	return nil
}
