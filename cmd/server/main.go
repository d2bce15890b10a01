package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shophub/shophub/auth"
	"github.com/shophub/shophub/catalog"
	"github.com/shophub/shophub/config"
	"github.com/shophub/shophub/logging"
	"github.com/shophub/shophub/mailer"
	"github.com/shophub/shophub/orders"
	"github.com/shophub/shophub/server"
	"github.com/shophub/shophub/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("development", "boot").Error("%v", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Env, "server")

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.CreateSchema(ctx, db); err != nil {
		return err
	}

	mail, err := mailer.NewService(mailer.Config{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		From:        cfg.SMTP.From,
		FromName:    cfg.SMTP.FromName,
		FrontendURL: cfg.FrontendURL,
		TemplateDir: cfg.EmailTemplateDir,
	}, logging.New(cfg.Env, "mailer"))
	if err != nil {
		return err
	}

	authRepo := auth.NewRepositoryManager(db)
	tokens := auth.NewTokenService(
		[]byte(cfg.SigningKey),
		cfg.TokenExpiration,
		cfg.Issuer,
		cfg.Audience,
		logging.New(cfg.Env, "tokens"),
	)

	verificationTokens := auth.NewOneTimeTokenSource(cfg.VerificationTokenTTL)
	resetTokens := auth.NewOneTimeTokenSource(cfg.ResetTokenTTL)

	authLogger := logging.New(cfg.Env, "auth")
	authController := auth.NewController(auth.ControllerConfig{
		Logger:   authLogger,
		Tokens:   tokens,
		Provider: auth.NewUserProvider(authRepo.Users(), authLogger),

		Register: auth.NewRegisterUserHandler(authRepo, verificationTokens, mail, cfg.BcryptCost, authLogger),
		Verify:   auth.NewVerifyEmailHandler(authRepo, authLogger),
		Resend:   auth.NewResendVerificationHandler(authRepo, verificationTokens, mail, authLogger),
		Forgot:   auth.NewInitializePasswordResetHandler(authRepo, resetTokens, mail, authLogger),
		Reset:    auth.NewFinalizePasswordResetHandler(authRepo, cfg.BcryptCost, authLogger),
		Change:   auth.NewChangePasswordHandler(authRepo, cfg.BcryptCost, authLogger),
		Profile:  auth.NewUpdateProfileHandler(authRepo, authLogger),

		CookieName:    cfg.CookieName,
		CookieTTL:     cfg.TokenExpiration,
		SecureCookies: cfg.IsProduction(),
	})

	products := catalog.NewProductsRepository(db)
	catalogController := catalog.NewController(products, logging.New(cfg.Env, "catalog"))

	ordersRepo := orders.NewRepositoryManager(db)
	ordersLogger := logging.New(cfg.Env, "orders")
	ordersController := orders.NewController(
		ordersRepo,
		products,
		orders.NewPlaceOrderHandler(ordersRepo, products, mail, ordersLogger),
		ordersLogger,
	)

	srv := server.New(server.Deps{
		Config:  cfg,
		Logger:  logger,
		Auth:    authController,
		Users:   authRepo.Users(),
		Tokens:  tokens,
		Catalog: catalogController,
		Orders:  ordersController,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("received %s, shutting down", sig)
		return srv.Shutdown()
	}
}
