package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	"github.com/shophub/shophub/logging"
)

// ChangePasswordMessage swaps an authenticated user's password after
// re-proving the current one.
type ChangePasswordMessage struct {
	UserID          uuid.UUID `json:"user_id"`
	CurrentPassword string    `json:"current_password"`
	NewPassword     string    `json:"new_password"`

	OnResponse func(user *User)
}

// ChangePasswordHandler verifies the current password before writing
// the new hash. A mismatch leaves the stored hash untouched.
type ChangePasswordHandler struct {
	repo       RepositoryManager
	logger     logging.Logger
	bcryptCost int
}

// NewChangePasswordHandler will create a new ChangePasswordHandler
func NewChangePasswordHandler(repo RepositoryManager, bcryptCost int, logger logging.Logger) *ChangePasswordHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ChangePasswordHandler{
		repo:       repo,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// Execute runs the change-password flow.
func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	user, err := h.repo.Users().GetByID(ctx, event.UserID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrUserGone
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	if err := ComparePasswordAndHash(event.CurrentPassword, user.PasswordHash); err != nil {
		return ErrCurrentPasswordMismatch
	}

	passwordHash, err := HashPasswordCost(event.NewPassword, h.bcryptCost)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user.PasswordHash = passwordHash
	if _, err := h.repo.Users().Save(ctx, user); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist password change")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
