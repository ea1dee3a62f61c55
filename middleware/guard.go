package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/blogauth"
)

type authResultContextKey struct{}

// TokenExtractor pulls the raw access token out of a request. It returns ""
// when the request carries none.
type TokenExtractor func(*http.Request) string

// AuthResultFromContext returns the result stored by [Guard].
func AuthResultFromContext(ctx context.Context) (*blogauth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*blogauth.AuthResult)
	return res, ok
}

// Guard rejects requests without a valid access token. A nil extractor reads
// the Authorization header only.
func Guard(engine *blogauth.Engine, routeMode blogauth.RouteMode, extract TokenExtractor) func(http.Handler) http.Handler {
	if extract == nil {
		extract = FromAuthorizationHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				Unauthorized(w)
				return
			}

			token := extract(r)
			if token == "" {
				Unauthorized(w)
				return
			}

			ctx := WithRequestMetadata(r)
			res, err := engine.Validate(ctx, token, routeMode)
			if errors.Is(err, blogauth.ErrStoreUnavailable) {
				Unavailable(w)
				return
			}
			if err != nil {
				Unauthorized(w)
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Unauthorized writes the single response used for every authentication
// failure, so callers cannot tell a reused token from an expired one.
func Unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"detail":"unauthenticated"}` + "\n"))
}

// Unavailable reports that the token could not be checked, e.g. because the
// revocation store is down. Clients must not treat it as a logout.
func Unavailable(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(`{"detail":"service unavailable"}` + "\n"))
}

// FromAuthorizationHeader reads a bearer token from the Authorization header.
func FromAuthorizationHeader(r *http.Request) string {
	token, _ := BearerToken(r.Header.Get("Authorization"))
	return token
}

// BearerToken strips the "Bearer " scheme from an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
