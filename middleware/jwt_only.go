package middleware

import (
	"net/http"

	"github.com/MrEthical07/blogauth"
)

// RequireJWTOnly returns middleware that overrides the validation mode to
// [blogauth.ModeJWTOnly] for the wrapped handler, skipping the revocation store.
func RequireJWTOnly(engine *blogauth.Engine, extract TokenExtractor) func(http.Handler) http.Handler {
	return Guard(engine, blogauth.ModeJWTOnly, extract)
}
