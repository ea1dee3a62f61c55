// Package client is the consumer side of a blogauth session.
//
// A [Coordinator] guarantees that however many requests observe an expired
// access token at once, exactly one refresh round trip is made. [Transport]
// wraps an http.RoundTripper: it attaches the access token, joins the
// coordinator on a 401 and replays the request once with the rotated token.
// [Client] ties both to the /api/auth endpoints.
//
// The client expects the server to echo tokens in response bodies
// (transport.Options.ExposeTokensInBody) since it sends them as headers.
//
// One Coordinator serves one session. Independent sessions, including those
// in tests, each get their own.
package client
