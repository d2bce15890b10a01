package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	"github.com/shophub/shophub/logging"
)

// ResendVerificationMessage asks for a fresh verification email for an
// authenticated, still unverified user.
type ResendVerificationMessage struct {
	UserID uuid.UUID `json:"user_id"`
}

// ResendVerificationHandler replaces the verification slot and sends a
// new email. Unlike registration, dispatch failure here surfaces to the
// caller: sending the email is the whole point of the operation. The
// superseded slot is left in place, the old token already stopped
// matching the moment the new hash was written.
type ResendVerificationHandler struct {
	repo   RepositoryManager
	tokens *OneTimeTokenSource
	mailer Mailer
	logger logging.Logger
}

// NewResendVerificationHandler will create a new ResendVerificationHandler
func NewResendVerificationHandler(repo RepositoryManager, tokens *OneTimeTokenSource, mailer Mailer, logger logging.Logger) *ResendVerificationHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ResendVerificationHandler{
		repo:   repo,
		tokens: tokens,
		mailer: mailer,
		logger: logger,
	}
}

// Execute runs the resend flow.
func (h *ResendVerificationHandler) Execute(ctx context.Context, event ResendVerificationMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendVerificationHandler) execute(ctx context.Context, event ResendVerificationMessage) error {
	user, err := h.repo.Users().GetByID(ctx, event.UserID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrUserGone
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}

	verification, err := h.tokens.Generate()
	if err != nil {
		return err
	}

	user.SetEmailVerificationToken(verification.Hash, verification.Expires)
	if _, err := h.repo.Users().Save(ctx, user); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist verification token")
	}

	if err := h.mailer.SendVerificationEmail(ctx, user.Email, user.Name, verification.Plaintext); err != nil {
		h.logger.Error("failed to resend verification email to %s: %v", user.Email, err)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "Verification email could not be sent")
	}

	return nil
}
