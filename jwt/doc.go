// Package jwt issues and verifies the signed bearer tokens used for sessions.
//
// Two kinds of token share one codec: short-lived access tokens and
// long-lived refresh tokens. Every issued token carries a fresh random id
// (jti) which the revocation store keys on. Parse checks the signature before
// the expiry so a forged token is always reported as a signature failure.
package jwt
