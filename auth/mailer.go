package auth

import "context"

// Mailer is the slice of the notification dispatcher the credential
// lifecycle needs. Delivery is best effort; each command decides
// whether a failure is swallowed, surfaced, or rolled back.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, name, token string) error
	SendPasswordResetEmail(ctx context.Context, to, name, token string) error
}
