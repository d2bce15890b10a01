package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"

	"github.com/shophub/shophub/logging"
)

// UpdateProfileMessage carries the mutable profile fields. Empty fields
// are left as they are, only provided values overwrite.
type UpdateProfileMessage struct {
	UserID  uuid.UUID `json:"user_id"`
	Name    string    `json:"name"`
	Phone   string    `json:"phone"`
	Address string    `json:"address"`

	OnResponse func(user *User)
}

// ErrInvalidPhone rejects a phone number that does not parse as a real
// dialable number.
var ErrInvalidPhone = goerrors.New("Invalid phone number", goerrors.CategoryValidation).
	WithTextCode("INVALID_PHONE")

// UpdateProfileHandler applies partial profile updates. Email and role
// are not reachable from here; email changes would need re-verification
// and role changes are an admin concern.
type UpdateProfileHandler struct {
	repo   RepositoryManager
	logger logging.Logger

	// defaultRegion resolves numbers entered without a country prefix.
	defaultRegion string
}

// NewUpdateProfileHandler will create a new UpdateProfileHandler
func NewUpdateProfileHandler(repo RepositoryManager, logger logging.Logger) *UpdateProfileHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &UpdateProfileHandler{
		repo:          repo,
		logger:        logger,
		defaultRegion: "US",
	}
}

// Execute runs the profile update flow.
func (h *UpdateProfileHandler) Execute(ctx context.Context, event UpdateProfileMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateProfileHandler) execute(ctx context.Context, event UpdateProfileMessage) error {
	user, err := h.repo.Users().GetByID(ctx, event.UserID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrUserGone
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	if event.Name != "" {
		user.Name = event.Name
	}

	if event.Phone != "" {
		normalized, err := h.normalizePhone(event.Phone)
		if err != nil {
			return err
		}
		user.Phone = normalized
	}

	if event.Address != "" {
		user.Address = event.Address
	}

	if _, err := h.repo.Users().Save(ctx, user); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist profile update")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

// normalizePhone validates the number and stores it in E.164 form so
// the same number always round-trips to the same representation.
func (h *UpdateProfileHandler) normalizePhone(raw string) (string, error) {
	num, err := phonenumbers.Parse(raw, h.defaultRegion)
	if err != nil {
		return "", ErrInvalidPhone
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
