package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"

	"github.com/shophub/shophub/logging"
)

// InitializePasswordResetMessage starts the forgot-password flow for an
// email address.
type InitializePasswordResetMessage struct {
	Email string `json:"email"`
}

// InitializePasswordResetHandler installs a reset token and emails the
// reset link. If dispatch fails the slot is rolled back before the
// error surfaces: a token the user never received must not stay live.
type InitializePasswordResetHandler struct {
	repo   RepositoryManager
	tokens *OneTimeTokenSource
	mailer Mailer
	logger logging.Logger
}

// NewInitializePasswordResetHandler will create a new InitializePasswordResetHandler
func NewInitializePasswordResetHandler(repo RepositoryManager, tokens *OneTimeTokenSource, mailer Mailer, logger logging.Logger) *InitializePasswordResetHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &InitializePasswordResetHandler{
		repo:   repo,
		tokens: tokens,
		mailer: mailer,
		logger: logger,
	}
}

// Execute runs the forgot-password flow.
func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrUserNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	reset, err := h.tokens.Generate()
	if err != nil {
		return err
	}

	user.SetPasswordResetToken(reset.Hash, reset.Expires)
	if _, err := h.repo.Users().Save(ctx, user); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist reset token")
	}

	if err := h.mailer.SendPasswordResetEmail(ctx, user.Email, user.Name, reset.Plaintext); err != nil {
		h.logger.Error("failed to send reset email to %s, rolling back token: %v", user.Email, err)

		user.ClearPasswordResetToken()
		if _, rbErr := h.repo.Users().Save(ctx, user); rbErr != nil {
			h.logger.Error("failed to roll back reset token for %s: %v", user.Email, rbErr)
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "Email could not be sent")
	}

	return nil
}

// FinalizePasswordResetMessage completes the flow with the emailed
// token and the replacement password.
type FinalizePasswordResetMessage struct {
	Token    string `json:"token"`
	Password string `json:"password"`

	OnResponse func(user *User)
}

// FinalizePasswordResetHandler swaps the password hash and consumes the
// reset slot in one write.
type FinalizePasswordResetHandler struct {
	repo       RepositoryManager
	logger     logging.Logger
	bcryptCost int
}

// NewFinalizePasswordResetHandler will create a new FinalizePasswordResetHandler
func NewFinalizePasswordResetHandler(repo RepositoryManager, bcryptCost int, logger logging.Logger) *FinalizePasswordResetHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &FinalizePasswordResetHandler{
		repo:       repo,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// Execute runs the reset-password flow.
func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	if event.Token == "" {
		return ErrResetTokenInvalid
	}

	user, err := h.repo.Users().GetByResetToken(ctx, HashOneTimeToken(event.Token), time.Now())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrResetTokenInvalid
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up reset token")
	}

	passwordHash, err := HashPasswordCost(event.Password, h.bcryptCost)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user.PasswordHash = passwordHash
	user.ClearPasswordResetToken()

	if _, err := h.repo.Users().Save(ctx, user); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist password reset")
	}

	h.logger.Info("password reset completed for user id=%s", user.ID)

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
