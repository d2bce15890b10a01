package catalog

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	"github.com/shophub/shophub/auth"
	"github.com/shophub/shophub/logging"
)

// ErrProductNotFound is returned for an unknown or deleted product id.
var ErrProductNotFound = goerrors.New("Product not found", goerrors.CategoryNotFound).
	WithTextCode("PRODUCT_NOT_FOUND")

// ErrInvalidProductID rejects path ids that are not uuids.
var ErrInvalidProductID = goerrors.New("Invalid product id", goerrors.CategoryBadInput).
	WithTextCode("INVALID_PRODUCT_ID")

// Controller is the catalog HTTP boundary. Reads are public, writes
// are admin only.
type Controller struct {
	store  Products
	logger logging.Logger
}

// NewController will create a new Controller
func NewController(store Products, logger logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Controller{store: store, logger: logger}
}

// RegisterRoutes mounts the catalog endpoints. The protected handler
// comes from the caller so the catalog stays ignorant of token
// plumbing.
func (p *Controller) RegisterRoutes(router fiber.Router, protected fiber.Handler) {
	adminOnly := auth.RequireRole(auth.RoleAdmin)

	router.Get("/", p.ListGet)
	router.Get("/categories/list", p.CategoriesGet)
	router.Get("/:id", p.DetailGet)

	router.Post("/", protected, adminOnly, p.CreatePost)
	router.Put("/:id", protected, adminOnly, p.UpdatePut)
	router.Delete("/:id", protected, adminOnly, p.DeleteDelete)
}

func (p *Controller) ListGet(c *fiber.Ctx) error {
	params := ParseListParams(func(key string) string {
		return c.Query(key)
	})

	records, total, err := p.store.Search(c.UserContext(), params)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list products")
	}

	pages := total / params.Limit
	if total%params.Limit != 0 {
		pages++
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"count":    len(records),
		"total":    total,
		"page":     params.Page,
		"pages":    pages,
		"products": records,
	})
}

func (p *Controller) DetailGet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrInvalidProductID
	}

	record, err := p.store.GetByID(c.UserContext(), id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrProductNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load product")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"product": record,
	})
}

func (p *Controller) CategoriesGet(c *fiber.Ctx) error {
	categories, err := p.store.Categories(c.UserContext())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list categories")
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"categories": categories,
	})
}

// ProductPayload is the admin create/update body. On update, zero
// fields other than Price and Stock are left unchanged.
type ProductPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Images      []string `json:"images"`
	Stock       *int     `json:"stock"`
	Category    string   `json:"category"`
}

// Validate will validate the payload for creation
func (r ProductPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Price, validation.Required, validation.By(nonNegativePrice)),
		validation.Field(&r.Category, validation.Length(0, 100)),
	)
}

// ValidatePartial will validate the payload for updates, where every
// field is optional.
func (r ProductPayload) ValidatePartial() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(1, 200)),
		validation.Field(&r.Price, validation.By(nonNegativePrice)),
		validation.Field(&r.Category, validation.Length(0, 100)),
	)
}

func nonNegativePrice(value any) error {
	price, ok := value.(*float64)
	if !ok || price == nil {
		return nil
	}
	if *price < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

func (p *Controller) CreatePost(c *fiber.Ctx) error {
	payload := new(ProductPayload)
	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	record := &Product{
		Title:       payload.Title,
		Description: payload.Description,
		Price:       *payload.Price,
		Images:      payload.Images,
		Category:    payload.Category,
	}
	if payload.Stock != nil {
		record.Stock = *payload.Stock
	}

	record, err := p.store.Create(c.UserContext(), record)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create product")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"product": record,
	})
}

func (p *Controller) UpdatePut(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrInvalidProductID
	}

	payload := new(ProductPayload)
	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body")
	}

	if err := payload.ValidatePartial(); err != nil {
		return err
	}

	record, err := p.store.GetByID(c.UserContext(), id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrProductNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load product")
	}

	if payload.Title != "" {
		record.Title = payload.Title
	}
	if payload.Description != "" {
		record.Description = payload.Description
	}
	if payload.Price != nil {
		record.Price = *payload.Price
	}
	if payload.Images != nil {
		record.Images = payload.Images
	}
	if payload.Stock != nil {
		record.Stock = *payload.Stock
	}
	if payload.Category != "" {
		record.Category = payload.Category
	}

	record, err = p.store.Update(c.UserContext(), record)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update product")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"product": record,
	})
}

func (p *Controller) DeleteDelete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return ErrInvalidProductID
	}

	if err := p.store.DeleteByID(c.UserContext(), id); err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrProductNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete product")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Product deleted successfully",
	})
}
