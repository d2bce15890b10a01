package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

const userContextKey = "auth_user"

// Protected rejects requests that do not carry a valid session. The
// token is read from the Authorization header first, then from the
// session cookie. On success the loaded user rides on the request
// context for downstream handlers.
func Protected(tokens TokenService, users Users, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := resolveUser(c, tokens, users, cookieName)
		if err != nil {
			return err
		}

		c.Locals(userContextKey, user)
		return c.Next()
	}
}

// OptionalAuth loads the user when a valid session is present and
// continues anonymously when it is not.
func OptionalAuth(tokens TokenService, users Users, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user, err := resolveUser(c, tokens, users, cookieName); err == nil {
			c.Locals(userContextKey, user)
		}
		return c.Next()
	}
}

// RequireRole gates a route to the given roles. It must run after
// Protected.
func RequireRole(roles ...UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return ErrNoToken
		}

		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}

		return ErrForbidden
	}
}

// RequireVerifiedEmail gates a route to accounts with a confirmed
// address. It must run after Protected.
func RequireVerifiedEmail() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return ErrNoToken
		}

		if !user.IsEmailVerified {
			return ErrEmailUnverified
		}

		return c.Next()
	}
}

// UserFromContext returns the user loaded by Protected or OptionalAuth.
func UserFromContext(c *fiber.Ctx) (*User, bool) {
	user, ok := c.Locals(userContextKey).(*User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

func resolveUser(c *fiber.Ctx, tokens TokenService, users Users, cookieName string) (*User, error) {
	tokenString := tokenFromRequest(c, cookieName)
	if tokenString == "" {
		return nil, ErrNoToken
	}

	claims, err := tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	uid, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrTokenMalformed
	}

	user, err := users.GetByID(c.UserContext(), uid.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserGone
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session user")
	}

	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	return user, nil
}

func tokenFromRequest(c *fiber.Ctx, cookieName string) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	if cookieName != "" {
		return c.Cookies(cookieName)
	}

	return ""
}
