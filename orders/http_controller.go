package orders

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	"github.com/shophub/shophub/auth"
	"github.com/shophub/shophub/catalog"
	"github.com/shophub/shophub/logging"
)

// Controller is the orders and cart HTTP boundary. Every route
// requires a session.
type Controller struct {
	repo     RepositoryManager
	products catalog.Products
	place    *PlaceOrderHandler
	logger   logging.Logger
}

// NewController will create a new Controller
func NewController(repo RepositoryManager, products catalog.Products, place *PlaceOrderHandler, logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Controller{
		repo:     repo,
		products: products,
		place:    place,
		logger:   logger,
	}
}

// RegisterOrderRoutes mounts the order endpoints.
func (o *Controller) RegisterOrderRoutes(router fiber.Router, protected fiber.Handler) {
	router.Post("/", protected, o.CreatePost)
	router.Get("/", protected, o.ListGet)
}

// RegisterCartRoutes mounts the cart endpoints.
func (o *Controller) RegisterCartRoutes(router fiber.Router, protected fiber.Handler) {
	router.Get("/", protected, o.CartGet)
	router.Post("/items", protected, o.CartItemPost)
	router.Delete("/items/:productId", protected, o.CartItemDelete)
}

// CreateOrderPayload is the order placement body
type CreateOrderPayload struct {
	Items           []PlaceOrderItem `json:"items"`
	ShippingAddress map[string]any   `json:"shippingAddress"`
}

// Validate will validate the payload
func (r CreateOrderPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items, validation.Required),
	)
}

func (o *Controller) CreatePost(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return auth.ErrNoToken
	}

	payload := new(CreateOrderPayload)
	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	var order *Order
	err := o.place.Execute(c.UserContext(), PlaceOrderMessage{
		UserID:          user.ID,
		Email:           user.Email,
		Name:            user.Name,
		Items:           payload.Items,
		ShippingAddress: payload.ShippingAddress,
		OnResponse: func(ord *Order) {
			order = ord
		},
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"order":   order,
	})
}

func (o *Controller) ListGet(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return auth.ErrNoToken
	}

	records, err := o.repo.Orders().ListByUser(c.UserContext(), user.ID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list orders")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(records),
		"orders":  records,
	})
}

func (o *Controller) CartGet(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return auth.ErrNoToken
	}

	items, err := o.repo.Carts().GetItems(c.UserContext(), user.ID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load cart")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"items":   items,
	})
}

// CartItemPayload is the cart upsert body
type CartItemPayload struct {
	ProductID string `json:"product"`
	Qty       int    `json:"qty"`
}

// Validate will validate the payload
func (r CartItemPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProductID, validation.Required, is.UUID),
		validation.Field(&r.Qty, validation.Min(1)),
	)
}

func (o *Controller) CartItemPost(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return auth.ErrNoToken
	}

	payload := new(CartItemPayload)
	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	productID, err := uuid.Parse(payload.ProductID)
	if err != nil {
		return catalog.ErrInvalidProductID
	}

	if _, err := o.products.GetByID(c.UserContext(), productID.String()); err != nil {
		if repository.IsRecordNotFound(err) {
			return catalog.ErrProductNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load product")
	}

	qty := payload.Qty
	if qty < 1 {
		qty = 1
	}

	item, err := o.repo.Carts().PutItem(c.UserContext(), &CartItem{
		UserID:    user.ID,
		ProductID: productID,
		Qty:       qty,
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save cart item")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"item":    item,
	})
}

func (o *Controller) CartItemDelete(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return auth.ErrNoToken
	}

	productID, err := uuid.Parse(c.Params("productId"))
	if err != nil {
		return catalog.ErrInvalidProductID
	}

	if err := o.repo.Carts().RemoveItem(c.UserContext(), user.ID, productID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove cart item")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Item removed from cart",
	})
}
