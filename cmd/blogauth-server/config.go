package main

import (
	"errors"
	"time"

	"github.com/MrEthical07/blogauth"
)

type config struct {
	HTTPAddr string
	LogLevel string

	SecretKey   string
	RedisURL    string
	DatabaseURL string

	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	RefreshReuseGrace time.Duration
	ValidationMode    string

	CookieSecure       bool
	ExposeTokensInBody bool
	AuditLog           bool

	// DemoUsername and DemoPassword seed the in-memory user source when no
	// database is configured.
	DemoUsername string
	DemoPassword string

	ShutdownTimeout time.Duration
}

func loadConfig() config {
	def := blogauth.DefaultConfig()
	return config{
		HTTPAddr: envString("HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: envString("LOG_LEVEL", "info"),

		SecretKey:   envString("SECRET_KEY", ""),
		RedisURL:    envString("REDIS_URL", ""),
		DatabaseURL: envString("DATABASE_URL", ""),

		AccessTTL:         envDuration("ACCESS_TTL", def.JWT.AccessTTL),
		RefreshTTL:        envDuration("REFRESH_TTL", def.JWT.RefreshTTL),
		RefreshReuseGrace: envDuration("REFRESH_REUSE_GRACE", 0),
		ValidationMode:    envString("VALIDATION_MODE", blogauth.ModeJWTOnly.String()),

		CookieSecure:       envBool("COOKIE_SECURE", true),
		ExposeTokensInBody: envBool("EXPOSE_TOKENS", false),
		AuditLog:           envBool("AUDIT_LOG", false),

		DemoUsername: envString("DEMO_USERNAME", "demo"),
		DemoPassword: envString("DEMO_PASSWORD", ""),

		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// engineConfig maps the process config onto the engine config.
func (c config) engineConfig() (blogauth.Config, error) {
	if c.SecretKey == "" {
		return blogauth.Config{}, errors.New("SECRET_KEY is required")
	}

	cfg := blogauth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(c.SecretKey)
	cfg.JWT.AccessTTL = c.AccessTTL
	cfg.JWT.RefreshTTL = c.RefreshTTL
	cfg.Refresh.ReuseGraceWindow = c.RefreshReuseGrace
	cfg.Audit.Enabled = c.AuditLog

	switch c.ValidationMode {
	case blogauth.ModeJWTOnly.String():
		cfg.ValidationMode = blogauth.ModeJWTOnly
	case blogauth.ModeStrict.String():
		cfg.ValidationMode = blogauth.ModeStrict
	default:
		return blogauth.Config{}, errors.New("VALIDATION_MODE must be jwt_only or strict")
	}

	return cfg, cfg.Validate()
}
