// Package blogauth implements a dual-token session lifecycle.
//
// An [Engine] is assembled with [New] and [Builder.Build]. It verifies
// credentials through a caller-supplied [CredentialVerifier], issues a
// short-lived access token and an optional long-lived refresh token, rotates
// refresh tokens on every use and treats a second presentation of a rotated
// token as theft ([ErrRefreshReuse]).
//
// Rotated and logged-out token ids are kept in a revocation store (see package
// revocation) for exactly their remaining lifetime. When the shared Redis store
// is unreachable the engine keeps working against a process-local fallback and
// logs the degradation once.
//
// HTTP binding lives in package transport, route protection in middleware, and
// the client-side single-flight refresh in package client.
package blogauth
