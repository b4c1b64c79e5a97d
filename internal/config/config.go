package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Paths holds the navigable routes the middleware redirects between.
// Passed explicitly into components instead of read from globals.
type Paths struct {
	SignIn     string
	VerifyMFA  string
	Home       string
	Onboarding string
	NotFound   string
	Invite     string
	AdminRoot  string
}

func DefaultPaths() Paths {
	return Paths{
		SignIn:     "/auth/sign-in",
		VerifyMFA:  "/auth/verify-mfa",
		Home:       "/home",
		Onboarding: "/home/onboarding",
		NotFound:   "/404",
		Invite:     "/join",
		AdminRoot:  "/admin",
	}
}

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
}

type Storage struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

type Config struct {
	Port          int
	GinMode       string
	DatabaseURL   string
	SessionSecret string
	SessionExpiry time.Duration

	SiteURL         string
	ProductName     string
	EmailSender     string
	EnableStrictCSP bool

	WebhookSecret string

	SMTP    SMTP
	Storage Storage
	Paths   Paths

	SignInRateLimit  int
	SignInRateWindow time.Duration

	LogLevel string
	LogDev   bool
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

func LoadConfig() (Config, error) {
	return LoadConfigFromEnv(osEnv{})
}

// LoadConfigFromEnv validates the whole environment eagerly; a missing
// required variable fails startup rather than failing later per request.
func LoadConfigFromEnv(env Env) (Config, error) {
	cfg := Config{
		Port:             3000,
		GinMode:          "release",
		SessionExpiry:    7 * 24 * time.Hour,
		Paths:            DefaultPaths(),
		SignInRateLimit:  10,
		SignInRateWindow: time.Minute,
		LogLevel:         "info",
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}
	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	cfg.DatabaseURL = env.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.SessionSecret = env.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET is required")
	}
	if raw := env.Getenv("SESSION_EXPIRY_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid SESSION_EXPIRY_SECONDS")
		}
		cfg.SessionExpiry = time.Duration(seconds) * time.Second
	}

	cfg.SiteURL = env.Getenv("SITE_URL")
	if cfg.SiteURL == "" {
		return Config{}, fmt.Errorf("SITE_URL is required")
	}
	if _, err := url.Parse(cfg.SiteURL); err != nil {
		return Config{}, fmt.Errorf("invalid SITE_URL: %w", err)
	}

	cfg.ProductName = env.Getenv("PRODUCT_NAME")
	if cfg.ProductName == "" {
		return Config{}, fmt.Errorf("PRODUCT_NAME is required")
	}

	cfg.EmailSender = env.Getenv("EMAIL_SENDER")
	if cfg.EmailSender == "" {
		return Config{}, fmt.Errorf("EMAIL_SENDER is required")
	}

	cfg.EnableStrictCSP = env.Getenv("ENABLE_STRICT_CSP") == "true"
	cfg.WebhookSecret = env.Getenv("WEBHOOK_SECRET")

	cfg.SMTP.Host = env.Getenv("SMTP_HOST")
	cfg.SMTP.Port = 587
	if raw := env.Getenv("SMTP_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid SMTP_PORT")
		}
		cfg.SMTP.Port = port
	}
	cfg.SMTP.Username = env.Getenv("SMTP_USERNAME")
	cfg.SMTP.Password = env.Getenv("SMTP_PASSWORD")

	cfg.Storage.Endpoint = env.Getenv("STORAGE_ENDPOINT")
	cfg.Storage.AccessKey = env.Getenv("STORAGE_ACCESS_KEY")
	cfg.Storage.SecretKey = env.Getenv("STORAGE_SECRET_KEY")
	cfg.Storage.Bucket = env.Getenv("STORAGE_BUCKET")
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "profile-pictures"
	}
	cfg.Storage.UseSSL = env.Getenv("STORAGE_USE_SSL") == "true"
	cfg.Storage.PublicURL = env.Getenv("STORAGE_PUBLIC_URL")

	if raw := env.Getenv("INVITE_PATH"); raw != "" {
		cfg.Paths.Invite = raw
	}

	if raw := env.Getenv("SIGN_IN_RATE_LIMIT"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return Config{}, fmt.Errorf("invalid SIGN_IN_RATE_LIMIT")
		}
		cfg.SignInRateLimit = limit
	}

	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	cfg.LogDev = env.Getenv("LOG_DEV") == "1"

	return cfg, nil
}

// InviteLink builds the URL included in invitation emails: the configured
// invite path on the site URL with the token and email as query parameters.
func (c Config) InviteLink(token, email string) string {
	base, err := url.Parse(c.SiteURL)
	if err != nil {
		return ""
	}
	ref := &url.URL{Path: c.Paths.Invite}
	joined := base.ResolveReference(ref)
	q := url.Values{}
	q.Set("invite_token", token)
	q.Set("email", email)
	joined.RawQuery = q.Encode()
	return joined.String()
}
