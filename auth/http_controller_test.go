package auth_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	"github.com/shophub/shophub/api"
	"github.com/shophub/shophub/auth"
	"github.com/shophub/shophub/storage"
)

type fakeMailer struct {
	mu   sync.Mutex
	fail bool

	verificationTokens []string
	resetTokens        []string
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, _, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return assert.AnError
	}
	m.verificationTokens = append(m.verificationTokens, token)
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, _, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return assert.AnError
	}
	m.resetTokens = append(m.resetTokens, token)
	return nil
}

func (m *fakeMailer) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *fakeMailer) lastVerificationToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.verificationTokens) == 0 {
		return ""
	}
	return m.verificationTokens[len(m.verificationTokens)-1]
}

func (m *fakeMailer) lastResetToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resetTokens) == 0 {
		return ""
	}
	return m.resetTokens[len(m.resetTokens)-1]
}

type authEnv struct {
	app  *fiber.App
	repo auth.RepositoryManager
	mail *fakeMailer
}

func setupAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, storage.CreateSchema(context.Background(), db))

	repo := auth.NewRepositoryManager(db)
	mail := &fakeMailer{}
	tokens := auth.NewTokenService([]byte("test-signing-key"), time.Hour, "shophub", []string{"shophub:web"}, nil)

	verification := auth.NewOneTimeTokenSource(24 * time.Hour)
	reset := auth.NewOneTimeTokenSource(time.Hour)

	controller := auth.NewController(auth.ControllerConfig{
		Tokens:   tokens,
		Provider: auth.NewUserProvider(repo.Users(), nil),

		Register: auth.NewRegisterUserHandler(repo, verification, mail, bcrypt.MinCost, nil),
		Verify:   auth.NewVerifyEmailHandler(repo, nil),
		Resend:   auth.NewResendVerificationHandler(repo, verification, mail, nil),
		Forgot:   auth.NewInitializePasswordResetHandler(repo, reset, mail, nil),
		Reset:    auth.NewFinalizePasswordResetHandler(repo, bcrypt.MinCost, nil),
		Change:   auth.NewChangePasswordHandler(repo, bcrypt.MinCost, nil),
		Profile:  auth.NewUpdateProfileHandler(repo, nil),

		CookieName: "token",
		CookieTTL:  time.Hour,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler(nil, false),
	})
	controller.RegisterRoutes(app.Group("/api/auth"), repo.Users())

	return &authEnv{app: app, repo: repo, mail: mail}
}

func (e *authEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	res, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}

	return res, decoded
}

func (e *authEnv) register(t *testing.T, name, email, password string) (string, map[string]any) {
	t.Helper()

	res, body := e.do(t, fiber.MethodPost, "/api/auth/register", "", fiber.Map{
		"name":     name,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, "register response: %v", body)

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token, body
}

func TestRegister(t *testing.T) {
	env := setupAuthEnv(t)

	token, body := env.register(t, "Alice", "alice@example.com", "password123")

	assert.NotEmpty(t, token)
	assert.Equal(t, true, body["success"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Alice", user["name"])
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, false, user["isEmailVerified"])

	// the verification email carried a token
	assert.NotEmpty(t, env.mail.lastVerificationToken())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := setupAuthEnv(t)
	env.register(t, "Alice", "alice@example.com", "password123")

	res, body := env.do(t, fiber.MethodPost, "/api/auth/register", "", fiber.Map{
		"name":     "Also Alice",
		"email":    "Alice@Example.com",
		"password": "password456",
	})
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "Email already registered", body["error"])
}

func TestRegisterSwallowsDispatchFailure(t *testing.T) {
	env := setupAuthEnv(t)
	env.mail.setFail(true)

	res, body := env.do(t, fiber.MethodPost, "/api/auth/register", "", fiber.Map{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.NotEmpty(t, body["token"])
}

func TestRegisterValidation(t *testing.T) {
	env := setupAuthEnv(t)

	res, body := env.do(t, fiber.MethodPost, "/api/auth/register", "", fiber.Map{
		"name":     "Alice",
		"email":    "not-an-email",
		"password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestLogin(t *testing.T) {
	env := setupAuthEnv(t)
	env.register(t, "Alice", "alice@example.com", "password123")

	res, body := env.do(t, fiber.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, body["token"])

	// the session cookie rides along
	cookies := res.Header.Values(fiber.HeaderSetCookie)
	require.NotEmpty(t, cookies)
	assert.Contains(t, cookies[0], "token=")
	assert.Contains(t, cookies[0], "HttpOnly")
}

func TestLoginFailuresAreUniform(t *testing.T) {
	env := setupAuthEnv(t)
	env.register(t, "Alice", "alice@example.com", "password123")

	// deactivate a second account
	env.register(t, "Bob", "bob@example.com", "password123")
	ctx := context.Background()
	bob, err := env.repo.Users().GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	bob.IsActive = false
	_, err = env.repo.Users().Save(ctx, bob)
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown user", "nobody@example.com", "password123"},
		{"wrong password", "alice@example.com", "wrong-password"},
		{"deactivated account", "bob@example.com", "password123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := env.do(t, fiber.MethodPost, "/api/auth/login", "", fiber.Map{
				"email":    tt.email,
				"password": tt.password,
			})
			assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
			assert.Equal(t, "Invalid credentials", body["error"])
		})
	}
}

func TestMe(t *testing.T) {
	env := setupAuthEnv(t)
	token, _ := env.register(t, "Alice", "alice@example.com", "password123")

	res, body := env.do(t, fiber.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, false, user["isEmailVerified"])
	assert.Contains(t, user, "profile")
}

func TestProtectedRejections(t *testing.T) {
	env := setupAuthEnv(t)

	t.Run("no token", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodGet, "/api/auth/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, "Not authorized, no token provided", body["error"])
	})

	t.Run("garbage token", func(t *testing.T) {
		res, _ := env.do(t, fiber.MethodGet, "/api/auth/me", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})
}

func TestVerifyEmail(t *testing.T) {
	env := setupAuthEnv(t)
	token, _ := env.register(t, "Alice", "alice@example.com", "password123")

	plaintext := env.mail.lastVerificationToken()
	require.NotEmpty(t, plaintext)

	res, body := env.do(t, fiber.MethodGet, "/api/auth/verify-email/"+plaintext, "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Email verified successfully", body["message"])

	res, meBody := env.do(t, fiber.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	user := meBody["user"].(map[string]any)
	assert.Equal(t, true, user["isEmailVerified"])

	// the token was consumed, replay fails
	res, body = env.do(t, fiber.MethodGet, "/api/auth/verify-email/"+plaintext, "", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "Invalid or expired verification token", body["error"])
}

func TestVerifyEmailUnknownToken(t *testing.T) {
	env := setupAuthEnv(t)

	res, _ := env.do(t, fiber.MethodGet, "/api/auth/verify-email/deadbeef", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestResendVerification(t *testing.T) {
	env := setupAuthEnv(t)
	token, _ := env.register(t, "Alice", "alice@example.com", "password123")

	first := env.mail.lastVerificationToken()

	res, _ := env.do(t, fiber.MethodPost, "/api/auth/resend-verification", token, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	second := env.mail.lastVerificationToken()
	assert.NotEqual(t, first, second)

	// the superseded token no longer verifies
	res, _ = env.do(t, fiber.MethodGet, "/api/auth/verify-email/"+first, "", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = env.do(t, fiber.MethodGet, "/api/auth/verify-email/"+second, "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestResendVerificationAlreadyVerified(t *testing.T) {
	env := setupAuthEnv(t)
	token, _ := env.register(t, "Alice", "alice@example.com", "password123")

	plaintext := env.mail.lastVerificationToken()
	res, _ := env.do(t, fiber.MethodGet, "/api/auth/verify-email/"+plaintext, "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, body := env.do(t, fiber.MethodPost, "/api/auth/resend-verification", token, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "Email is already verified", body["error"])
}

func TestResendVerificationDispatchFailure(t *testing.T) {
	env := setupAuthEnv(t)
	token, _ := env.register(t, "Alice", "alice@example.com", "password123")

	env.mail.setFail(true)
	res, _ := env.do(t, fiber.MethodPost, "/api/auth/resend-verification", token, nil)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
}

func TestForgotPassword(t *testing.T) {
	env := setupAuthEnv(t)
	env.register(t, "Alice", "alice@example.com", "password123")

	t.Run("unknown email", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodPost, "/api/auth/forgot-password", "", fiber.Map{
			"email": "nobody@example.com",
		})
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
		assert.Equal(t, "No user found with that email", body["error"])
	})

	t.Run("known email", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodPost, "/api/auth/forgot-password", "", fiber.Map{
			"email": "alice@example.com",
		})
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, "Email sent", body["message"])
		assert.NotEmpty(t, env.mail.lastResetToken())

		user, err := env.repo.Users().GetByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, user.PasswordResetToken)
	})
}

func TestForgotPasswordRollsBackOnDispatchFailure(t *testing.T) {
	env := setupAuthEnv(t)
	env.register(t, "Alice", "alice@example.com", "password123")

	env.mail.setFail(true)
	res, body := env.do(t, fiber.MethodPost, "/api/auth/forgot-password", "", fiber.Map{
		"email": "alice@example.com",
	})
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "Email could not be sent", body["error"])

	// the token the user never received must not stay live
	user, err := env.repo.Users().GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, user.PasswordResetToken)
	assert.Nil(t, user.PasswordResetExpires)
}

func TestResetPassword(t *testing.T) {
	env := setupAuthEnv(t)
	env.register(t, "Alice", "alice@example.com", "password123")

	res, _ := env.do(t, fiber.MethodPost, "/api/auth/forgot-password", "", fiber.Map{
		"email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	plaintext := env.mail.lastResetToken()
	require.NotEmpty(t, plaintext)

	res, body := env.do(t, fiber.MethodPost, "/api/auth/reset-password/"+plaintext, "", fiber.Map{
		"password": "brand-new-password",
	})
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, body["token"])

	// old password is gone, new one works
	res, _ = env.do(t, fiber.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = env.do(t, fiber.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "alice@example.com",
		"password": "brand-new-password",
	})
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// the reset token was consumed
	res, _ = env.do(t, fiber.MethodPost, "/api/auth/reset-password/"+plaintext, "", fiber.Map{
		"password": "yet-another-password",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestChangePassword(t *testing.T) {
	env := setupAuthEnv(t)
	token, _ := env.register(t, "Alice", "alice@example.com", "password123")

	t.Run("wrong current password", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodPut, "/api/auth/change-password", token, fiber.Map{
			"currentPassword": "not-my-password",
			"newPassword":     "new-password-123",
		})
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, "Current password is incorrect", body["error"])

		// the stored hash is untouched
		res, _ = env.do(t, fiber.MethodPost, "/api/auth/login", "", fiber.Map{
			"email":    "alice@example.com",
			"password": "password123",
		})
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("correct current password", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodPut, "/api/auth/change-password", token, fiber.Map{
			"currentPassword": "password123",
			"newPassword":     "new-password-123",
		})
		assert.Equal(t, http.StatusOK, res.StatusCode)
		assert.NotEmpty(t, body["token"])

		res, _ = env.do(t, fiber.MethodPost, "/api/auth/login", "", fiber.Map{
			"email":    "alice@example.com",
			"password": "new-password-123",
		})
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})
}

func TestUpdateProfile(t *testing.T) {
	env := setupAuthEnv(t)
	token, _ := env.register(t, "Alice", "alice@example.com", "password123")

	t.Run("valid update", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodPut, "/api/auth/update-profile", token, fiber.Map{
			"name":    "Alice Cooper",
			"phone":   "+12125551234",
			"address": "1 Main St",
		})
		assert.Equal(t, http.StatusOK, res.StatusCode)

		user := body["user"].(map[string]any)
		assert.Equal(t, "Alice Cooper", user["name"])

		profile := user["profile"].(map[string]any)
		assert.Equal(t, "+12125551234", profile["phone"])
		assert.Equal(t, "1 Main St", profile["address"])
	})

	t.Run("invalid phone", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodPut, "/api/auth/update-profile", token, fiber.Map{
			"phone": "not-a-phone",
		})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "Invalid phone number", body["error"])
	})

	t.Run("empty fields leave record unchanged", func(t *testing.T) {
		res, body := env.do(t, fiber.MethodPut, "/api/auth/update-profile", token, fiber.Map{})
		assert.Equal(t, http.StatusOK, res.StatusCode)

		user := body["user"].(map[string]any)
		assert.Equal(t, "Alice Cooper", user["name"])
	})
}

func TestLogout(t *testing.T) {
	env := setupAuthEnv(t)

	res, body := env.do(t, fiber.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Logged out successfully", body["message"])

	cookies := res.Header.Values(fiber.HeaderSetCookie)
	require.NotEmpty(t, cookies)
	assert.Contains(t, cookies[0], "token=")
	assert.Contains(t, cookies[0], "expires=")
}
