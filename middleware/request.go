package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/MrEthical07/blogauth"
)

// WithRequestMetadata copies the client address and user agent into the
// request context so engine logs and audit events can carry them.
func WithRequestMetadata(r *http.Request) context.Context {
	ctx := r.Context()

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ctx = blogauth.WithClientIP(ctx, host)
	ctx = blogauth.WithUserAgent(ctx, r.UserAgent())

	return ctx
}
