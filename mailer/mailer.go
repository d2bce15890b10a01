// Package mailer delivers transactional email over SMTP with HTML
// bodies rendered from django templates.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"

	"github.com/shophub/shophub/logging"
)

// Config carries SMTP credentials and the pieces needed to build the
// links embedded in each message.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string

	// FrontendURL is the base for emailed links; the frontend owns the
	// /verify-email/:token and /reset-password/:token pages.
	FrontendURL string
	TemplateDir string
}

// Service renders and sends the application's transactional email.
type Service struct {
	cfg    Config
	dialer *gomail.Dialer
	engine *django.Engine
	logger logging.Logger
}

// NewService loads the template set and prepares the SMTP dialer. It
// fails fast on a broken template directory rather than at first send.
func NewService(cfg Config, logger logging.Logger) (*Service, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	engine := django.New(cfg.TemplateDir, ".django")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load email templates")
	}

	return &Service{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		engine: engine,
		logger: logger,
	}, nil
}

// SendVerificationEmail emails the address-confirmation link. The
// plaintext token only ever travels inside this link.
func (s *Service) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	link := s.link("/verify-email/", token)
	body, err := s.render("verification", map[string]any{
		"name": name,
		"link": link,
	})
	if err != nil {
		return err
	}

	return s.send(ctx, to, "Verify your email", body)
}

// SendPasswordResetEmail emails the reset link.
func (s *Service) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	link := s.link("/reset-password/", token)
	body, err := s.render("password_reset", map[string]any{
		"name": name,
		"link": link,
	})
	if err != nil {
		return err
	}

	return s.send(ctx, to, "Password reset request", body)
}

// SendOrderConfirmationEmail emails an order receipt.
func (s *Service) SendOrderConfirmationEmail(ctx context.Context, to, name, orderID string, total float64) error {
	body, err := s.render("order_confirmation", map[string]any{
		"name":     name,
		"order_id": orderID,
		"total":    fmt.Sprintf("%.2f", total),
	})
	if err != nil {
		return err
	}

	return s.send(ctx, to, "Your order confirmation", body)
}

func (s *Service) link(path, token string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + path + token
}

func (s *Service) render(template string, binding map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := s.engine.Render(&buf, template, binding); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email template").
			WithMetadata(map[string]any{"template": template})
	}
	return buf.String(), nil
}

func (s *Service) send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to deliver email").
			WithMetadata(map[string]any{"subject": subject})
	}

	s.logger.Debug("email sent to=%s subject=%q", to, subject)
	return nil
}
