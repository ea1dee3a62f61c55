package blogauth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/blogauth/internal/audit"
	"github.com/MrEthical07/blogauth/internal/flows"
	"github.com/MrEthical07/blogauth/jwt"
	"github.com/MrEthical07/blogauth/revocation"
	"github.com/redis/go-redis/v9"
)

const storeOpenTimeout = 3 * time.Second

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  revocation.Store

	verifier  CredentialVerifier
	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis shares revocation state through client. Without it (and without
// [Builder.WithRevocationStore]) reuse detection is process-local.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRevocationStore uses store as is, bypassing the Redis failover wiring.
func (b *Builder) WithRevocationStore(store revocation.Store) *Builder {
	b.store = store
	return b
}

// WithCredentialVerifier sets the verifier used by Login. Required.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithAuditSink sets where audit events go. Audit must also be enabled in the config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces the time source used for issuing and verifying tokens.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.verifier == nil {
		return nil, errors.New("credential verifier required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config:   cfg,
		verifier: b.verifier,
		logger:   logger,
		now:      now,
		metrics:  NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	// -------- REVOCATION STORE --------
	store := b.store
	if store == nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
		store = revocation.Open(ctx, revocation.Options{
			Redis:         b.redis,
			Prefix:        cfg.Revocation.RedisPrefix,
			Logger:        logger,
			ProbeInterval: cfg.Revocation.ProbeInterval,
			OnStateChange: engine.onStoreStateChange,
		})
		cancel()
	}
	engine.store = store

	// -------- TOKEN CODEC --------
	codec, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		ClockSkew:     cfg.JWT.ClockSkew,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
		Now:           now,
	})
	if err != nil {
		engine.audit.Close()
		return nil, err
	}
	engine.codec = codec

	skew := cfg.JWT.ClockSkew
	if skew == 0 {
		skew = jwt.DefaultClockSkew
	}
	tokens := flows.TokenDeps{
		Issue:      codec.Issue,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	}
	engine.flows = flows.New(flows.Deps{
		Login: flows.LoginDeps{
			VerifyCredentials:  engine.verifyCredentials,
			InvalidCredentials: ErrInvalidCredentials,
			Tokens:             tokens,
		},
		Refresh: flows.RefreshDeps{
			Parse:       codec.Parse,
			Tokens:      tokens,
			Store:       store,
			Now:         now,
			ClockSkew:   skew,
			GraceWindow: cfg.Refresh.ReuseGraceWindow,
		},
		Logout: flows.LogoutDeps{
			Parse:     codec.Parse,
			Store:     store,
			Now:       now,
			ClockSkew: skew,
		},
		Validate: flows.ValidateDeps{
			Parse: codec.Parse,
			Store: store,
		},
	})

	b.built = true

	return engine, nil
}
