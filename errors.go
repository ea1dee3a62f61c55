package blogauth

import "errors"

var (
	// ErrUnauthorized is the single failure surfaced to callers outside the engine.
	// The transport collapses every authentication error into it.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned by Login when the username/password pair does not verify.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenMalformed is returned when an access token cannot be decoded.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenSignatureInvalid is returned when an access token fails signature verification.
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	// ErrTokenExpired is returned when an access token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned in strict mode for access tokens revoked by logout.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrRefreshInvalid is returned when a refresh token is malformed, forged or of the wrong kind.
	ErrRefreshInvalid = errors.New("refresh token invalid")
	// ErrRefreshExpired is returned when a refresh token is past its expiry.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrRefreshReuse is returned when an already rotated refresh token is presented again.
	ErrRefreshReuse = errors.New("refresh token reuse detected")

	// ErrStoreDegraded marks log records written while the shared revocation
	// store is down. It never fails a request.
	ErrStoreDegraded = errors.New("revocation store degraded")
	// ErrStoreUnavailable is returned when a revocation store without fallback fails.
	ErrStoreUnavailable = errors.New("revocation store unavailable")

	// ErrEngineNotReady is returned when an Engine is used before Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ErrInvalidRouteMode is returned by Validate for an unknown route override.
var ErrInvalidRouteMode = errors.New("invalid route validation mode")
