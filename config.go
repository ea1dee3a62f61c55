package blogauth

import (
	"errors"
	"time"

	"github.com/MrEthical07/blogauth/jwt"
	"github.com/MrEthical07/blogauth/revocation"
)

// Config holds every engine setting. It is copied by [Builder.WithConfig] and
// treated as immutable afterwards.
type Config struct {
	JWT            JWTConfig
	Refresh        RefreshConfig
	Revocation     RevocationConfig
	Audit          AuditConfig
	Metrics        MetricsConfig
	ValidationMode ValidationMode
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token signing and lifetimes.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default), "ed25519" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	// ClockSkew is the tolerance applied to exp. Zero selects 5s; max 1m.
	ClockSkew  time.Duration
	KeyID      string
	VerifyKeys map[string][]byte
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls refresh-token rotation.
type RefreshConfig struct {
	// ReuseGraceWindow lets a just-rotated refresh token be presented once more
	// within this window, absorbing benign concurrent rotations. Zero (the
	// default) treats every reuse as theft.
	ReuseGraceWindow time.Duration
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig controls the revocation store built from a Redis client.
type RevocationConfig struct {
	RedisPrefix string
	// ProbeInterval limits how often Redis is retried while degraded.
	ProbeInterval time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// ValidationMode selects how access tokens are checked.
type ValidationMode int

const (
	// ModeInherit uses the engine default. Only meaningful as a route override.
	ModeInherit ValidationMode = iota - 1
	// ModeJWTOnly verifies signature and expiry without a store round-trip.
	ModeJWTOnly
	// ModeStrict additionally rejects access tokens revoked by logout.
	ModeStrict
)

func (m ValidationMode) String() string {
	switch m {
	case ModeInherit:
		return "inherit"
	case ModeJWTOnly:
		return "jwt_only"
	case ModeStrict:
		return "strict"
	default:
		return "unknown"
	}
}

// RouteMode is the per-route override mode for Engine.Validate.
type RouteMode = ValidationMode

const maxReuseGraceWindow = 5 * time.Minute

// DefaultConfig returns the baseline configuration: 30 minute access tokens,
// 7 day refresh tokens, HS256, JWT-only validation. A signing key must still
// be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     30 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: string(jwt.MethodHS256),
			ClockSkew:     jwt.DefaultClockSkew,
		},
		Revocation: RevocationConfig{
			RedisPrefix:   revocation.DefaultPrefix,
			ProbeInterval: revocation.DefaultProbeInterval,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		ValidationMode: ModeJWTOnly,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must be shorter than RefreshTTL")
	}

	switch c.JWT.SigningMethod {
	case string(jwt.MethodHS256):
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("hs256 requires PrivateKey")
		}
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 PrivateKey must be at least 32 bytes")
		}
	case string(jwt.MethodEd25519):
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 && len(c.JWT.VerifyKeys) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	if c.JWT.ClockSkew < 0 || c.JWT.ClockSkew > time.Minute {
		return errors.New("JWT ClockSkew must be between 0 and 1m")
	}

	if c.Refresh.ReuseGraceWindow < 0 {
		return errors.New("Refresh ReuseGraceWindow must be >= 0")
	}
	if c.Refresh.ReuseGraceWindow > maxReuseGraceWindow {
		return errors.New("Refresh ReuseGraceWindow must be <= 5m")
	}
	if c.Refresh.ReuseGraceWindow >= c.JWT.AccessTTL {
		return errors.New("Refresh ReuseGraceWindow must be shorter than AccessTTL")
	}

	if c.Revocation.ProbeInterval < 0 {
		return errors.New("Revocation ProbeInterval must be >= 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	switch c.ValidationMode {
	case ModeJWTOnly, ModeStrict:
	default:
		return errors.New("ValidationMode must be ModeJWTOnly or ModeStrict")
	}

	return nil
}
