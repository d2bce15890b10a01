package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"

	"github.com/shophub/shophub/logging"
)

// UserProvider resolves credentials against the store. It is the only
// component that compares passwords.
type UserProvider struct {
	store  Users
	logger logging.Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store Users, logger logging.Logger) *UserProvider {
	if logger == nil {
		logger = logging.Nop()
	}
	return &UserProvider{
		store:  store,
		logger: logger,
	}
}

// VerifyIdentity finds the user and compares the password. Unknown
// account, wrong password, and deactivated account all return
// ErrInvalidCredentials: the three cases must stay indistinguishable
// to the caller.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (*User, error) {
	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if !user.IsActive {
		u.logger.Info("login rejected for deactivated account id=%s", user.ID)
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to compare password hash")
	}

	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		// the session is still valid, only the bookkeeping write failed
		u.logger.Error("failed to track successful login: %v", err)
	}

	return user, nil
}
