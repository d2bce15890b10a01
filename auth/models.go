package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleStandard is a regular shopper account
	RoleStandard UserRole = "user"
	// RoleAdmin can manage the catalog
	RoleAdmin UserRole = "admin"
)

// ParseRole returns the role when it is a known one
func ParseRole(role string) (UserRole, bool) {
	switch role {
	case RoleStandard, RoleAdmin:
		return role, true
	default:
		return "", false
	}
}

// User is the credential store record. The password is only ever held
// as a bcrypt hash, and the verification/reset slots hold a sha256 hex
// digest of the one-time token, never the plaintext.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID    uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name  string    `bun:"name,notnull" json:"name,omitempty"`
	Email string    `bun:"email,notnull,unique" json:"email,omitempty"`
	Role  UserRole  `bun:"user_role,notnull" json:"role,omitempty"`

	PasswordHash string `bun:"password_hash,notnull" json:"-"`

	IsActive        bool `bun:"is_active" json:"is_active"`
	IsEmailVerified bool `bun:"is_email_verified" json:"is_email_verified"`

	// One live (hash, expiry) pair per purpose. Writing a new pair
	// supersedes the previous token, clearing consumes it.
	EmailVerificationToken   string     `bun:"email_verification_token,nullzero" json:"-"`
	EmailVerificationExpires *time.Time `bun:"email_verification_expires,nullzero" json:"-"`
	PasswordResetToken       string     `bun:"password_reset_token,nullzero" json:"-"`
	PasswordResetExpires     *time.Time `bun:"password_reset_expires,nullzero" json:"-"`

	Phone   string `bun:"phone_number,nullzero" json:"phone,omitempty"`
	Address string `bun:"address,nullzero" json:"address,omitempty"`

	LastLoginAt *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt   *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt   *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// SetEmailVerificationToken installs a new verification slot. Generate
// always supersedes: any previously issued token stops matching.
func (u *User) SetEmailVerificationToken(hash string, expires time.Time) *User {
	u.EmailVerificationToken = hash
	u.EmailVerificationExpires = &expires
	return u
}

// ClearEmailVerificationToken consumes the verification slot so the
// token cannot be replayed.
func (u *User) ClearEmailVerificationToken() *User {
	u.EmailVerificationToken = ""
	u.EmailVerificationExpires = nil
	return u
}

// SetPasswordResetToken installs a new reset slot, superseding any
// previously issued reset token.
func (u *User) SetPasswordResetToken(hash string, expires time.Time) *User {
	u.PasswordResetToken = hash
	u.PasswordResetExpires = &expires
	return u
}

// ClearPasswordResetToken consumes the reset slot.
func (u *User) ClearPasswordResetToken() *User {
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	return u
}

// NormalizeEmail lower-cases and trims an email address so lookups and
// uniqueness behave case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
