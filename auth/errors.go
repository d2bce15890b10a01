package auth

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// The credential lifecycle reports failures through category-tagged
// errors. The HTTP boundary maps category to status exactly once, in
// MapErrorStatus; nothing inspects error strings.

// ErrInvalidCredentials covers unknown user, wrong password, and
// deactivated account. All three share one message so the response
// never leaks which accounts exist.
var ErrInvalidCredentials = goerrors.New("Invalid credentials", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS")

// ErrEmailTaken is returned when registering an address that already
// has an account.
var ErrEmailTaken = goerrors.New("Email already registered", goerrors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN")

// ErrUserNotFound is returned by flows that intentionally disclose
// existence, currently only forgot-password.
var ErrUserNotFound = goerrors.New("No user found with that email", goerrors.CategoryNotFound).
	WithTextCode("USER_NOT_FOUND")

// ErrVerificationTokenInvalid covers unknown, consumed, superseded and
// expired verification tokens. One message for all four, a probe
// should not learn which case it hit.
var ErrVerificationTokenInvalid = goerrors.New("Invalid or expired verification token", goerrors.CategoryValidation).
	WithTextCode("VERIFICATION_TOKEN_INVALID")

// ErrResetTokenInvalid is the reset-flow counterpart of
// ErrVerificationTokenInvalid.
var ErrResetTokenInvalid = goerrors.New("Invalid or expired reset token", goerrors.CategoryValidation).
	WithTextCode("RESET_TOKEN_INVALID")

// ErrAlreadyVerified rejects re-sending a verification email once the
// address is confirmed.
var ErrAlreadyVerified = goerrors.New("Email is already verified", goerrors.CategoryConflict).
	WithTextCode("ALREADY_VERIFIED")

// ErrCurrentPasswordMismatch rejects a change-password request whose
// current password does not match. The caller is authenticated, so a
// specific message leaks nothing.
var ErrCurrentPasswordMismatch = goerrors.New("Current password is incorrect", goerrors.CategoryAuth).
	WithTextCode("CURRENT_PASSWORD_MISMATCH")

// ErrNoToken is returned when a protected route receives no session
// token at all.
var ErrNoToken = goerrors.New("Not authorized, no token provided", goerrors.CategoryAuth).
	WithTextCode("NO_TOKEN")

// ErrTokenExpired is returned for session tokens past their expiry.
var ErrTokenExpired = goerrors.New("Token expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED")

// ErrTokenMalformed is returned for tokens that fail to parse or carry
// a bad signature. Both map to unauthenticated, never to a crash.
var ErrTokenMalformed = goerrors.New("Invalid token", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED")

// ErrUserGone is returned when a valid token references a user that no
// longer exists.
var ErrUserGone = goerrors.New("User no longer exists", goerrors.CategoryAuth).
	WithTextCode("USER_GONE")

// ErrAccountDeactivated is returned when a valid token references a
// deactivated account. Login never reveals this state, but an existing
// session holder already knows the account exists.
var ErrAccountDeactivated = goerrors.New("Account has been deactivated", goerrors.CategoryAuth).
	WithTextCode("ACCOUNT_DEACTIVATED")

// ErrForbidden gates role- and verification-protected resources.
var ErrForbidden = goerrors.New("You do not have permission to perform this action", goerrors.CategoryAuthz).
	WithTextCode("FORBIDDEN")

// ErrEmailUnverified gates resources that require a confirmed address.
var ErrEmailUnverified = goerrors.New("Please verify your email before accessing this resource", goerrors.CategoryAuthz).
	WithTextCode("EMAIL_UNVERIFIED")

// ErrNoEmptyString rejects empty input where a value is mandatory.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation).
	WithTextCode("EMPTY_VALUE")

// ErrMismatchedHashAndPassword is the low level bcrypt mismatch; the
// login flow converts it to ErrInvalidCredentials before it reaches
// the boundary.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match hash", goerrors.CategoryAuth).
	WithTextCode("PASSWORD_MISMATCH")

// MapErrorStatus resolves a category-tagged error to its HTTP status.
// This is the single place where the taxonomy meets status codes.
func MapErrorStatus(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
