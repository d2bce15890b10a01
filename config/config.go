package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SMTP holds the outbound email transport settings.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Config is built once at startup and passed by reference into every
// component that needs it. Nothing in the request path reads the
// environment directly.
type Config struct {
	Env  string
	Port string

	DatabaseDSN string

	SigningKey      string
	TokenExpiration time.Duration
	Issuer          string
	Audience        []string
	CookieName      string

	// One-time token windows. Verification and reset are configured
	// independently on purpose, they have different exposure profiles.
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration

	FrontendURL    string
	AllowedOrigins []string

	EmailTemplateDir string
	SMTP             SMTP

	BcryptCost int
}

// Load reads the environment (including a .env file when present) and
// returns a fully resolved Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "5000"),
		DatabaseDSN: getEnv("DATABASE_DSN", "file:shophub.db?cache=shared&_pragma=foreign_keys(1)"),

		SigningKey:      getEnv("JWT_SECRET", ""),
		TokenExpiration: getDuration("JWT_EXPIRES_IN", 168*time.Hour),
		Issuer:          getEnv("JWT_ISSUER", "shophub"),
		Audience:        splitList(getEnv("JWT_AUDIENCE", "shophub:web")),
		CookieName:      getEnv("SESSION_COOKIE_NAME", "token"),

		VerificationTokenTTL: getDuration("VERIFICATION_TOKEN_TTL", 24*time.Hour),
		ResetTokenTTL:        getDuration("RESET_TOKEN_TTL", time.Hour),

		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:5174"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:5174,http://localhost:3000")),

		EmailTemplateDir: getEnv("EMAIL_TEMPLATE_DIR", "templates/emails"),
		SMTP: SMTP{
			Host:     getEnv("EMAIL_HOST", "smtp.mailtrap.io"),
			Port:     getInt("EMAIL_PORT", 2525),
			Username: getEnv("EMAIL_USER", ""),
			Password: getEnv("EMAIL_PASS", ""),
			From:     getEnv("EMAIL_FROM", "noreply@shophub.com"),
			FromName: getEnv("EMAIL_FROM_NAME", "ShopHub"),
		},

		BcryptCost: getInt("BCRYPT_COST", 0),
	}

	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}

	return cfg, nil
}

// IsProduction reports whether the app runs with production error masking.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
