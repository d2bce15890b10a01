package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"

	"github.com/shophub/shophub/logging"
)

// RegisterUserMessage carries the input for creating an account.
// OnResponse receives the persisted record after the transaction
// commits.
type RegisterUserMessage struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`

	OnResponse func(user *User)
}

// RegisterUserHandler creates an account, installs a verification
// token, and dispatches the verification email. Dispatch failure is
// logged and swallowed: the account exists either way, and the user
// can ask for a resend.
type RegisterUserHandler struct {
	repo       RepositoryManager
	tokens     *OneTimeTokenSource
	mailer     Mailer
	logger     logging.Logger
	bcryptCost int
}

// NewRegisterUserHandler will create a new RegisterUserHandler
func NewRegisterUserHandler(repo RepositoryManager, tokens *OneTimeTokenSource, mailer Mailer, bcryptCost int, logger logging.Logger) *RegisterUserHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &RegisterUserHandler{
		repo:       repo,
		tokens:     tokens,
		mailer:     mailer,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// Execute runs the registration flow.
func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	passwordHash, err := HashPasswordCost(event.Password, h.bcryptCost)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	verification, err := h.tokens.Generate()
	if err != nil {
		return err
	}

	user := &User{
		Name:         event.Name,
		Email:        NormalizeEmail(event.Email),
		PasswordHash: passwordHash,
		Role:         RoleStandard,
		IsActive:     true,
	}
	user.SetEmailVerificationToken(verification.Hash, verification.Expires)

	if uid, err := hashid.NewUUID(user.Email); err == nil {
		user.ID = uid
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, user.Email); err == nil {
			return ErrEmailTaken
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		if _, err := h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "failed to create user").
				WithMetadata(map[string]any{"email": user.Email})
		}

		return nil
	})
	if err != nil {
		return err
	}

	if err := h.mailer.SendVerificationEmail(ctx, user.Email, user.Name, verification.Plaintext); err != nil {
		h.logger.Error("failed to send verification email to %s: %v", user.Email, err)
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
