// Package server assembles the fiber app: middleware stack, route
// registration, health endpoints and shutdown.
package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/shophub/shophub/api"
	"github.com/shophub/shophub/auth"
	"github.com/shophub/shophub/catalog"
	"github.com/shophub/shophub/config"
	"github.com/shophub/shophub/logging"
	"github.com/shophub/shophub/orders"
)

const bodyLimit = 10 * 1024 * 1024

// Deps are the wired application pieces the server mounts.
type Deps struct {
	Config *config.Config
	Logger logging.Logger

	Auth    *auth.Controller
	Users   auth.Users
	Tokens  auth.TokenService
	Catalog *catalog.Controller
	Orders  *orders.Controller
}

// Server owns the fiber app lifecycle.
type Server struct {
	app    *fiber.App
	cfg    *config.Config
	logger logging.Logger
}

// New builds the app and mounts every route.
func New(deps Deps) *Server {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "shophub",
		BodyLimit:             bodyLimit,
		ErrorHandler:          api.ErrorHandler(logger, cfg.IsProduction()),
		DisableStartupMessage: cfg.IsProduction(),
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowCredentials: true,
	}))
	app.Use(compress.New())
	app.Use(requestLogger(logger))

	started := time.Now()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "ShopHub API",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"uptime": time.Since(started).String(),
		})
	})

	// 100 requests per 15 minutes per IP across the API; the credential
	// endpoints get a stricter budget that only counts failures.
	apiLimiter := limiter.New(limiter.Config{
		Max:        100,
		Expiration: 15 * time.Minute,
	})
	authLimiter := limiter.New(limiter.Config{
		Max:                    5,
		Expiration:             15 * time.Minute,
		SkipSuccessfulRequests: true,
	})

	root := app.Group("/api", apiLimiter)

	authGroup := root.Group("/auth")
	authGroup.Use("/login", authLimiter)
	authGroup.Use("/register", authLimiter)
	authGroup.Use("/forgot-password", authLimiter)
	deps.Auth.RegisterRoutes(authGroup, deps.Users)

	protected := auth.Protected(deps.Tokens, deps.Users, cfg.CookieName)
	deps.Catalog.RegisterRoutes(root.Group("/products"), protected)
	deps.Orders.RegisterOrderRoutes(root.Group("/orders"), protected)
	deps.Orders.RegisterCartRoutes(root.Group("/cart"), protected)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Route not found",
		})
	})

	return &Server{
		app:    app,
		cfg:    cfg,
		logger: logger,
	}
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP until Shutdown.
func (s *Server) Listen() error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	s.logger.Info("listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests before returning.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(10 * time.Second)
}
