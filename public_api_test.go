package blogauth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/MrEthical07/blogauth"
	"github.com/MrEthical07/blogauth/middleware"
)

// Guards the exported surface against accidental signature changes.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = blogauth.New

	var _ *blogauth.Engine
	var _ blogauth.Config
	var _ blogauth.AuthResult
	var _ blogauth.TokenPair
	var _ blogauth.CredentialVerifier
	var _ blogauth.AuditSink

	var _ error = blogauth.ErrUnauthorized
	var _ error = blogauth.ErrInvalidCredentials
	var _ error = blogauth.ErrTokenMalformed
	var _ error = blogauth.ErrTokenSignatureInvalid
	var _ error = blogauth.ErrTokenExpired
	var _ error = blogauth.ErrTokenRevoked
	var _ error = blogauth.ErrRefreshInvalid
	var _ error = blogauth.ErrRefreshExpired
	var _ error = blogauth.ErrRefreshReuse
	var _ error = blogauth.ErrStoreUnavailable

	var _ func(*blogauth.Engine, blogauth.RouteMode, middleware.TokenExtractor) func(http.Handler) http.Handler = middleware.Guard
	var _ func(*blogauth.Engine, middleware.TokenExtractor) func(http.Handler) http.Handler = middleware.RequireJWTOnly
	var _ func(*blogauth.Engine, middleware.TokenExtractor) func(http.Handler) http.Handler = middleware.RequireStrict

	var _ func(*blogauth.Engine, context.Context, blogauth.LoginRequest) (*blogauth.TokenPair, error) = (*blogauth.Engine).Login
	var _ func(*blogauth.Engine, context.Context, string) (*blogauth.TokenPair, error) = (*blogauth.Engine).Refresh
	var _ func(*blogauth.Engine, context.Context, string, blogauth.RouteMode) (*blogauth.AuthResult, error) = (*blogauth.Engine).Validate
	var _ func(*blogauth.Engine, context.Context, blogauth.LogoutRequest) error = (*blogauth.Engine).Logout
}
