package blogauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/blogauth/internal/audit"
	"github.com/MrEthical07/blogauth/internal/flows"
	"github.com/MrEthical07/blogauth/jwt"
	"github.com/MrEthical07/blogauth/revocation"
)

// Engine issues, rotates, validates and revokes session tokens.
//
// Engine is safe for concurrent use. It holds no per-session state; the
// revocation store is the only shared mutable resource.
type Engine struct {
	config   Config
	codec    *jwt.Manager
	store    revocation.Store
	verifier CredentialVerifier
	flows    flows.Service
	audit    *internalaudit.Dispatcher
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// StoreDegraded reports whether revocation currently runs on the
// process-local fallback.
func (e *Engine) StoreDegraded() bool {
	if e == nil {
		return false
	}
	if r, ok := e.store.(revocation.DegradedReporter); ok {
		return r.Degraded()
	}
	return false
}

// AccessTTL returns the configured access-token lifetime.
func (e *Engine) AccessTTL() time.Duration {
	return e.config.JWT.AccessTTL
}

// RefreshTTL returns the configured refresh-token lifetime.
func (e *Engine) RefreshTTL() time.Duration {
	return e.config.JWT.RefreshTTL
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) onStoreStateChange(degraded bool) {
	if degraded {
		e.metricInc(MetricStoreDegraded)
		e.emitAudit(context.Background(), auditEventStoreDegraded, false, "", "", ErrStoreDegraded, nil)
		return
	}
	e.metricInc(MetricStoreRecovered)
	e.emitAudit(context.Background(), auditEventStoreRecovered, true, "", "", nil, nil)
}

func (e *Engine) verifyCredentials(ctx context.Context, username, password string) (jwt.Subject, error) {
	id, err := e.verifier.Verify(ctx, username, password)
	if err != nil {
		return jwt.Subject{}, err
	}
	return jwt.Subject{ID: id.ID, Username: id.Username, Email: id.Email}, nil
}

// Login verifies credentials and issues an access token, plus a refresh token
// when req.RememberMe is set.
//
// Any credential problem, including a failing verifier backend, is reported as
// [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Login(ctx, req.Username, req.Password, req.RememberMe)
	switch res.Failure {
	case flows.LoginFailureNone:
		e.metricInc(MetricLoginSuccess)
		e.emitAudit(ctx, auditEventLoginSuccess, true, res.Subject.ID, res.Pair.Access.ID, nil, func() map[string]string {
			return map[string]string{
				"remember_me": fmt.Sprint(req.RememberMe),
			}
		})
		return pairFromFlow(res.Pair), nil
	case flows.LoginFailureBackend:
		e.logger.ErrorContext(ctx, "credential verifier failed",
			slog.String("username", req.Username),
			slog.Any("error", res.Err),
		)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "verifier_backend"}
		})
		return nil, ErrInvalidCredentials
	case flows.LoginFailureIssue:
		e.logger.ErrorContext(ctx, "token issuance failed", slog.Any("error", res.Err))
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.Subject.ID, "", res.Err, func() map[string]string {
			return map[string]string{"reason": "issue_failed"}
		})
		return nil, fmt.Errorf("issue tokens: %w", res.Err)
	default:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "invalid_credentials"}
		})
		return nil, ErrInvalidCredentials
	}
}

// Refresh rotates refreshToken into a new pair and revokes it for its
// remaining lifetime.
//
// Presenting a token that was already rotated returns [ErrRefreshReuse]. When
// two callers rotate the same token concurrently exactly one of them succeeds.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Refresh(ctx, refreshToken)
	var subjectID, tokenID string
	if res.Presented != nil {
		subjectID, tokenID = res.Presented.Subject.ID, res.Presented.ID
	}

	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		if res.Grace {
			e.metricInc(MetricRefreshGraceAccepted)
			e.logger.InfoContext(ctx, "refresh token reuse accepted within grace window",
				slog.String("subject", subjectID),
				slog.String("jti", tokenID),
			)
		}
		e.emitAudit(ctx, auditEventRefreshSuccess, true, subjectID, tokenID, nil, func() map[string]string {
			return map[string]string{
				"grace":   fmt.Sprint(res.Grace),
				"new_jti": res.Pair.Refresh.ID,
			}
		})
		return pairFromFlow(res.Pair), nil

	case flows.RefreshFailureReuse:
		e.metricInc(MetricRefreshReuseDetected)
		e.metricInc(MetricRefreshFailure)
		e.logger.WarnContext(ctx, "refresh token reuse detected",
			slog.String("subject", subjectID),
			slog.String("jti", tokenID),
			slog.String("ip", metaFrom(ctx).ip),
			slog.String("user_agent", metaFrom(ctx).userAgent),
		)
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, subjectID, tokenID, ErrRefreshReuse, nil)
		return nil, ErrRefreshReuse

	case flows.RefreshFailureExpired:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrRefreshExpired, func() map[string]string {
			return map[string]string{"reason": "expired"}
		})
		return nil, ErrRefreshExpired

	case flows.RefreshFailureStore:
		e.metricInc(MetricRefreshFailure)
		e.logger.ErrorContext(ctx, "revocation store failed during refresh",
			slog.String("jti", tokenID),
			slog.Any("error", res.Err),
		)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, subjectID, tokenID, ErrStoreUnavailable, nil)
		return nil, ErrStoreUnavailable

	case flows.RefreshFailureIssue:
		e.metricInc(MetricRefreshFailure)
		e.logger.ErrorContext(ctx, "token issuance failed", slog.Any("error", res.Err))
		e.emitAudit(ctx, auditEventRefreshInvalid, false, subjectID, tokenID, res.Err, func() map[string]string {
			return map[string]string{"reason": "issue_failed"}
		})
		return nil, fmt.Errorf("issue tokens: %w", res.Err)

	default:
		reason := "invalid"
		if res.Failure == flows.RefreshFailureWrongKind {
			reason = "wrong_kind"
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, subjectID, tokenID, ErrRefreshInvalid, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return nil, ErrRefreshInvalid
	}
}

// Logout revokes every presented token that still verifies, including the
// refresh token an access token was issued with. It is idempotent and only
// fails when the engine is not initialized.
func (e *Engine) Logout(ctx context.Context, req LogoutRequest) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}

	res := e.flows.Logout(ctx, req.AccessToken, req.RefreshToken)
	for _, err := range res.Errs {
		e.logger.WarnContext(ctx, "logout revocation failed", slog.Any("error", err))
	}

	e.metricInc(MetricLogout)
	if e.metrics != nil {
		e.metrics.Add(MetricTokenRevoked, uint64(len(res.Revoked)))
	}
	e.emitAudit(ctx, auditEventLogout, true, res.SubjectID, "", nil, func() map[string]string {
		return map[string]string{"revoked": fmt.Sprint(len(res.Revoked))}
	})
	return nil
}

// ValidateAccess validates with the engine's default mode.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*AuthResult, error) {
	return e.Validate(ctx, tokenStr, ModeInherit)
}

// Validate verifies an access token. ModeJWTOnly checks signature and expiry
// only; ModeStrict also rejects tokens revoked by logout. Refresh tokens are
// never accepted.
func (e *Engine) Validate(ctx context.Context, tokenStr string, routeMode RouteMode) (*AuthResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	mode, err := e.resolveRouteMode(routeMode)
	if err != nil {
		return nil, err
	}

	res := e.flows.Validate(ctx, tokenStr, mode == ModeStrict)
	switch res.Failure {
	case flows.ValidateFailureNone:
		e.metricInc(MetricValidateSuccess)
		return &AuthResult{
			Identity: Identity{
				ID:       res.Token.Subject.ID,
				Username: res.Token.Subject.Username,
				Email:    res.Token.Subject.Email,
			},
			TokenID:   res.Token.ID,
			IssuedAt:  res.Token.IssuedAt,
			ExpiresAt: res.Token.ExpiresAt,
			Mode:      mode,
		}, nil
	case flows.ValidateFailureExpired:
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenExpired
	case flows.ValidateFailureSignature:
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenSignatureInvalid
	case flows.ValidateFailureMalformed:
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenMalformed
	case flows.ValidateFailureRevoked:
		e.metricInc(MetricValidateRevoked)
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenRevoked
	case flows.ValidateFailureStore:
		e.metricInc(MetricValidateFailure)
		e.logger.ErrorContext(ctx, "revocation store failed during strict validation", slog.Any("error", res.Err))
		return nil, ErrStoreUnavailable
	default:
		e.metricInc(MetricValidateFailure)
		return nil, ErrUnauthorized
	}
}

// CurrentIdentity returns the identity carried by a valid access token.
func (e *Engine) CurrentIdentity(ctx context.Context, accessToken string) (Identity, error) {
	res, err := e.ValidateAccess(ctx, accessToken)
	if err != nil {
		return Identity{}, err
	}
	return res.Identity, nil
}

func (e *Engine) resolveRouteMode(routeMode RouteMode) (ValidationMode, error) {
	switch routeMode {
	case ModeInherit:
		return e.config.ValidationMode, nil
	case ModeJWTOnly, ModeStrict:
		return routeMode, nil
	default:
		return 0, ErrInvalidRouteMode
	}
}

func pairFromFlow(p flows.Pair) *TokenPair {
	out := &TokenPair{
		AccessToken:     p.Access.Raw,
		AccessExpiresAt: p.Access.ExpiresAt,
		Identity: Identity{
			ID:       p.Access.Subject.ID,
			Username: p.Access.Subject.Username,
			Email:    p.Access.Subject.Email,
		},
	}
	if p.Refresh != nil {
		out.RefreshToken = p.Refresh.Raw
		out.RefreshExpiresAt = p.Refresh.ExpiresAt
	}
	return out
}
