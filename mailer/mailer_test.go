package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shophub/shophub/logging"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	svc, err := NewService(Config{
		Host:        "localhost",
		Port:        2525,
		From:        "noreply@shophub.com",
		FromName:    "ShopHub",
		FrontendURL: "http://localhost:5174",
		TemplateDir: "../templates/emails",
	}, logging.Nop())
	require.NoError(t, err)
	return svc
}

func TestLinkBuilding(t *testing.T) {
	svc := newTestService(t)

	assert.Equal(t,
		"http://localhost:5174/verify-email/abc123",
		svc.link("/verify-email/", "abc123"),
	)

	// trailing slash on the base does not double up
	svc.cfg.FrontendURL = "http://localhost:5174/"
	assert.Equal(t,
		"http://localhost:5174/reset-password/def456",
		svc.link("/reset-password/", "def456"),
	)
}

func TestRenderVerificationTemplate(t *testing.T) {
	svc := newTestService(t)

	body, err := svc.render("verification", map[string]any{
		"name": "Alice",
		"link": "http://localhost:5174/verify-email/tok123",
	})
	require.NoError(t, err)

	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, "http://localhost:5174/verify-email/tok123")
}

func TestRenderPasswordResetTemplate(t *testing.T) {
	svc := newTestService(t)

	body, err := svc.render("password_reset", map[string]any{
		"name": "Alice",
		"link": "http://localhost:5174/reset-password/tok456",
	})
	require.NoError(t, err)

	assert.Contains(t, body, "tok456")
	assert.Contains(t, body, "valid for 1 hour")
}

func TestRenderOrderConfirmationTemplate(t *testing.T) {
	svc := newTestService(t)

	body, err := svc.render("order_confirmation", map[string]any{
		"name":     "Alice",
		"order_id": "order-789",
		"total":    "22.49",
	})
	require.NoError(t, err)

	assert.Contains(t, body, "order-789")
	assert.Contains(t, body, "$22.49")
}

func TestRenderUnknownTemplate(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.render("does_not_exist", nil)
	assert.Error(t, err)
}
