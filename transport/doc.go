// Package transport binds blogauth sessions to HTTP.
//
// [Binding] decides where tokens travel: HttpOnly cookies for browsers, with
// the Authorization and X-Refresh-Token headers as a fallback for other
// clients. [Handler] serves the login, refresh, logout and current-identity
// endpoints under /api/auth.
//
// Every authentication failure is answered with the same 401 body so a reused
// refresh token is indistinguishable from an expired one on the wire.
package transport
