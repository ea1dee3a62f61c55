// Package middleware guards net/http routes with blogauth.Engine.Validate.
//
// [Guard] takes a per-route mode; [RequireJWTOnly] and [RequireStrict] pin
// one. Tokens are pulled by a [TokenExtractor] and the accepted
// [blogauth.AuthResult] is stored in the request context. All failures share
// one 401 response, see [Unauthorized].
package middleware
