package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"

	"github.com/shophub/shophub/logging"
)

// VerifyEmailMessage carries the plaintext token from the emailed link.
type VerifyEmailMessage struct {
	Token string `json:"token"`

	OnResponse func(user *User)
}

// VerifyEmailHandler confirms an address. The lookup only matches a
// live slot, so consumed, superseded and expired tokens all fall into
// the same invalid-token answer.
type VerifyEmailHandler struct {
	repo   RepositoryManager
	logger logging.Logger
}

// NewVerifyEmailHandler will create a new VerifyEmailHandler
func NewVerifyEmailHandler(repo RepositoryManager, logger logging.Logger) *VerifyEmailHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &VerifyEmailHandler{repo: repo, logger: logger}
}

// Execute runs the verification flow.
func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	if event.Token == "" {
		return ErrVerificationTokenInvalid
	}

	user, err := h.repo.Users().GetByVerificationToken(ctx, HashOneTimeToken(event.Token), time.Now())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrVerificationTokenInvalid
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up verification token")
	}

	user.IsEmailVerified = true
	user.ClearEmailVerificationToken()

	if _, err := h.repo.Users().Save(ctx, user); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist email verification")
	}

	h.logger.Info("email verified for user id=%s", user.ID)

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
