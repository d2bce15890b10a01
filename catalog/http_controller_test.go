package catalog_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	"github.com/shophub/shophub/api"
	"github.com/shophub/shophub/auth"
	"github.com/shophub/shophub/catalog"
	"github.com/shophub/shophub/storage"
)

type catalogEnv struct {
	app    *fiber.App
	store  catalog.Products
	tokens auth.TokenService
	users  auth.Users
}

func setupCatalogEnv(t *testing.T) *catalogEnv {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, storage.CreateSchema(context.Background(), db))

	store := catalog.NewProductsRepository(db)
	users := auth.NewUsersRepository(db)
	tokens := auth.NewTokenService([]byte("test-signing-key"), time.Hour, "shophub", []string{"shophub:web"}, nil)

	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler(nil, false),
	})

	controller := catalog.NewController(store, nil)
	protected := auth.Protected(tokens, users, "token")
	controller.RegisterRoutes(app.Group("/api/products"), protected)

	return &catalogEnv{app: app, store: store, tokens: tokens, users: users}
}

func (e *catalogEnv) tokenFor(t *testing.T, role auth.UserRole) string {
	t.Helper()

	hash, err := auth.HashPasswordCost("password123", bcrypt.MinCost)
	require.NoError(t, err)

	user, err := e.users.Create(context.Background(), &auth.User{
		Name:         "Test " + role,
		Email:        fmt.Sprintf("%s-%s@example.com", role, uuid.NewString()[:8]),
		Role:         role,
		PasswordHash: hash,
		IsActive:     true,
	})
	require.NoError(t, err)

	token, err := e.tokens.Generate(user)
	require.NoError(t, err)
	return token
}

func (e *catalogEnv) seed(t *testing.T, title, category string, price float64) *catalog.Product {
	t.Helper()

	record, err := e.store.Create(context.Background(), &catalog.Product{
		Title:    title,
		Category: category,
		Price:    price,
		Stock:    10,
	})
	require.NoError(t, err)
	return record
}

func (e *catalogEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	res, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}

	return res, decoded
}

func TestProductList(t *testing.T) {
	env := setupCatalogEnv(t)
	env.seed(t, "USB Cable", "electronics", 9.99)
	env.seed(t, "Wireless Headphones", "electronics", 79.99)
	env.seed(t, "Coffee Mug", "kitchen", 12.50)

	t.Run("all products", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodGet, "/api/products/", "", nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.EqualValues(t, 3, body["total"])
		assert.EqualValues(t, 3, body["count"])
		assert.EqualValues(t, 1, body["page"])
		assert.EqualValues(t, 1, body["pages"])
	})

	t.Run("search", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodGet, "/api/products/?q=headphones", "", nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.EqualValues(t, 1, body["total"])
	})

	t.Run("category filter", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodGet, "/api/products/?category=electronics", "", nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.EqualValues(t, 2, body["total"])
	})

	t.Run("price range", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodGet, "/api/products/?minPrice=10&maxPrice=20", "", nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.EqualValues(t, 1, body["total"])
	})

	t.Run("sorting", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodGet, "/api/products/?sort=-price", "", nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)

		products := body["products"].([]any)
		first := products[0].(map[string]any)
		assert.Equal(t, "Wireless Headphones", first["title"])
	})

	t.Run("pagination", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodGet, "/api/products/?limit=2&page=2&sort=title", "", nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.EqualValues(t, 3, body["total"])
		assert.EqualValues(t, 1, body["count"])
		assert.EqualValues(t, 2, body["pages"])
	})
}

func TestProductDetail(t *testing.T) {
	env := setupCatalogEnv(t)
	record := env.seed(t, "USB Cable", "electronics", 9.99)

	res, body := env.do(t, fiber.MethodGet, "/api/products/"+record.ID.String(), "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	product := body["product"].(map[string]any)
	assert.Equal(t, "USB Cable", product["title"])

	t.Run("unknown id", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodGet, "/api/products/"+uuid.NewString(), "", nil)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
		assert.Equal(t, "Product not found", body["error"])
	})

	t.Run("invalid id", func(t *testing.T) {
		res, _ := env.do(t, fiber.MethodGet, "/api/products/not-a-uuid", "", nil)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

func TestCategoriesList(t *testing.T) {
	env := setupCatalogEnv(t)
	env.seed(t, "USB Cable", "electronics", 9.99)
	env.seed(t, "Headphones", "electronics", 79.99)
	env.seed(t, "Mug", "kitchen", 12.50)

	res, body := env.do(t, fiber.MethodGet, "/api/products/categories/list", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []any{"electronics", "kitchen"}, body["categories"])
}

func TestProductMutationsRequireAdmin(t *testing.T) {
	env := setupCatalogEnv(t)
	record := env.seed(t, "USB Cable", "electronics", 9.99)

	userToken := env.tokenFor(t, auth.RoleStandard)

	t.Run("anonymous create", func(t *testing.T) {
		res, _ := env.do(t, fiber.MethodPost, "/api/products/", "", fiber.Map{"title": "X", "price": 1.0})
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("non-admin create", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodPost, "/api/products/", userToken, fiber.Map{"title": "X", "price": 1.0})
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
		assert.Equal(t, "You do not have permission to perform this action", body["error"])
	})

	t.Run("non-admin delete", func(t *testing.T) {
		res, _ := env.do(t, fiber.MethodDelete, "/api/products/"+record.ID.String(), userToken, nil)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})
}

func TestProductAdminCRUD(t *testing.T) {
	env := setupCatalogEnv(t)
	adminToken := env.tokenFor(t, auth.RoleAdmin)

	res, body := env.do(t, fiber.MethodPost, "/api/products/", adminToken, fiber.Map{
		"title":    "Espresso Machine",
		"price":    199.99,
		"category": "kitchen",
		"stock":    4,
		"images":   []string{"https://example.com/espresso.jpg"},
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, "create response: %v", body)

	product := body["product"].(map[string]any)
	id := product["id"].(string)
	assert.Equal(t, "Espresso Machine", product["title"])

	t.Run("update", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodPut, "/api/products/"+id, adminToken, fiber.Map{
			"price": 149.99,
		})
		assert.Equal(t, http.StatusOK, res.StatusCode)

		product := body["product"].(map[string]any)
		assert.InDelta(t, 149.99, product["price"].(float64), 0.001)
		assert.Equal(t, "Espresso Machine", product["title"])
	})

	t.Run("delete", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodDelete, "/api/products/"+id, adminToken, nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "Product deleted successfully", body["message"])

		res, _ = env.do(t, fiber.MethodGet, "/api/products/"+id, "", nil)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("create without title", func(t *testing.T) {
		res, _ := env.do(t, fiber.MethodPost, "/api/products/", adminToken, fiber.Map{"price": 5.0})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}
