package blogauth

import (
	"context"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/blogauth/internal/audit"
	internalmetrics "github.com/MrEthical07/blogauth/internal/metrics"
)

// Identity is the authenticated principal carried in every token.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// CredentialVerifier checks a username/password pair. Implementations return
// [ErrInvalidCredentials] (possibly wrapped) when the pair does not match and
// any other error for backend failures.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (Identity, error)
}

// CredentialVerifierFunc adapts a function to [CredentialVerifier].
type CredentialVerifierFunc func(ctx context.Context, username, password string) (Identity, error)

// Verify calls f.
func (f CredentialVerifierFunc) Verify(ctx context.Context, username, password string) (Identity, error) {
	return f(ctx, username, password)
}

// LoginRequest is the input to [Engine.Login].
type LoginRequest struct {
	Username string
	Password string
	// RememberMe requests a refresh token in addition to the access token.
	RememberMe bool
}

// LogoutRequest carries whatever tokens the caller still holds. Either may be empty.
type LogoutRequest struct {
	AccessToken  string
	RefreshToken string
}

// TokenPair is returned by Login and Refresh. RefreshToken is empty when no
// refresh token was issued.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	Identity         Identity
}

// HasRefresh reports whether a refresh token was issued.
func (p *TokenPair) HasRefresh() bool {
	return p != nil && p.RefreshToken != ""
}

// AuthResult is returned by [Engine.Validate].
type AuthResult struct {
	Identity  Identity
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Mode      ValidationMode
}

// AuditEvent is a structured record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// SlogSink writes each event as a structured log record.
type SlogSink = internalaudit.SlogSink

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// MetricID identifies a specific counter or histogram in the in-process metrics.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess         = internalmetrics.MetricLoginSuccess
	MetricLoginFailure         = internalmetrics.MetricLoginFailure
	MetricRefreshSuccess       = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure       = internalmetrics.MetricRefreshFailure
	MetricRefreshReuseDetected = internalmetrics.MetricRefreshReuseDetected
	MetricRefreshGraceAccepted = internalmetrics.MetricRefreshGraceAccepted
	MetricLogout               = internalmetrics.MetricLogout
	MetricTokenRevoked         = internalmetrics.MetricTokenRevoked
	MetricValidateSuccess      = internalmetrics.MetricValidateSuccess
	MetricValidateFailure      = internalmetrics.MetricValidateFailure
	MetricValidateRevoked      = internalmetrics.MetricValidateRevoked
	MetricStoreDegraded        = internalmetrics.MetricStoreDegraded
	MetricStoreRecovered       = internalmetrics.MetricStoreRecovered
	MetricValidateLatency      = internalmetrics.MetricValidateLatency
)

// Metrics holds atomic counters and the optional validate latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance. When cfg.Enabled is false all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
