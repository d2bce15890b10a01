package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// OneTimeToken is the result of generating a verification or reset
// token. Plaintext leaves the process exactly once, embedded in an
// emailed link; only Hash and Expires are ever persisted.
type OneTimeToken struct {
	Plaintext string
	Hash      string
	Expires   time.Time
}

// OneTimeTokenSource issues single-use side-channel tokens. The TTL is
// fixed per source so verification and reset windows are configured
// independently.
type OneTimeTokenSource struct {
	ttl time.Duration
	now func() time.Time
}

// NewOneTimeTokenSource creates a source with the given lifetime.
func NewOneTimeTokenSource(ttl time.Duration) *OneTimeTokenSource {
	return &OneTimeTokenSource{ttl: ttl, now: time.Now}
}

// WithClock overrides the clock, useful in tests.
func (s *OneTimeTokenSource) WithClock(now func() time.Time) *OneTimeTokenSource {
	if now != nil {
		s.now = now
	}
	return s
}

// Generate returns a fresh token. Storing the returned hash over a
// previous one supersedes it: the single-slot invariant means only the
// most recently issued token per purpose can ever match.
func (s *OneTimeTokenSource) Generate() (OneTimeToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return OneTimeToken{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read token entropy")
	}

	plaintext := hex.EncodeToString(buf)

	return OneTimeToken{
		Plaintext: plaintext,
		Hash:      HashOneTimeToken(plaintext),
		Expires:   s.now().Add(s.ttl),
	}, nil
}

// HashOneTimeToken derives the at-rest form of a one-time token.
func HashOneTimeToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// OneTimeTokenMatches reports whether a presented plaintext token is
// valid against a stored (hash, expiry) pair at the given instant. An
// empty stored hash means the slot was consumed or never populated.
func OneTimeTokenMatches(plaintext, storedHash string, storedExpires *time.Time, now time.Time) bool {
	if plaintext == "" || storedHash == "" || storedExpires == nil {
		return false
	}

	if !now.Before(*storedExpires) {
		return false
	}

	presented := HashOneTimeToken(plaintext)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(storedHash)) == 1
}
