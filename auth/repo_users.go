package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the credential store contract. The password hash rides on
// the record itself; callers that do not need it must not serialize it
// (the model marks it json:"-").
type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)

	// Token lookups only match a live slot: hash equality plus an
	// unexpired window, evaluated in one query.
	GetByVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error)

	Save(ctx context.Context, user *User) (*User, error)
	SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository builds the bun-backed credential store.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": NormalizeEmail(email)})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*User, error) {
	return a.getByTokenSlot(ctx, "email_verification_token", "email_verification_expires", tokenHash, now)
}

func (a *users) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error) {
	return a.getByTokenSlot(ctx, "password_reset_token", "password_reset_expires", tokenHash, now)
}

func (a *users) getByTokenSlot(ctx context.Context, hashColumn, expiryColumn, tokenHash string, now time.Time) (*User, error) {
	if tokenHash == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias."+hashColumn+" = ?", tokenHash).
		Where("?TableAlias."+expiryColumn+" > ?", now).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

// Create applies record defaults before insert.
func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

// Save persists the full record, including cleared token slots. The
// update is column-complete on purpose: writing nil over a consumed
// slot is what enforces single use.
func (a *users) Save(ctx context.Context, user *User) (*User, error) {
	return a.SaveTx(ctx, a.db, user)
}

func (a *users) SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	now := time.Now()
	user.UpdatedAt = &now

	_, err := tx.NewUpdate().
		Model(user).
		Column(
			"name", "email", "user_role", "password_hash",
			"is_active", "is_email_verified",
			"email_verification_token", "email_verification_expires",
			"password_reset_token", "password_reset_expires",
			"phone_number", "address", "last_login_at", "updated_at",
		).
		WherePK().
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	return user, nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	lastLogin := time.Now()
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("last_login_at = ?", lastLogin).
		Where("?TableAlias.id = ?", user.ID).
		Where("?TableAlias.deleted_at IS NULL").
		Exec(ctx)

	if err == nil {
		user.LastLoginAt = &lastLogin
	}
	return err
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)

	if record.Role == "" {
		record.Role = RoleStandard
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
