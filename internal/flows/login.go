package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/blogauth/jwt"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInput
	LoginFailureCredentials
	LoginFailureBackend
	LoginFailureIssue
)

// LoginResult carries the issued pair or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Subject jwt.Subject
	Pair    Pair
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	VerifyCredentials func(ctx context.Context, username, password string) (jwt.Subject, error)
	// InvalidCredentials is the verifier error that means the password did not match.
	InvalidCredentials error
	Tokens             TokenDeps
}

// RunLogin verifies credentials and mints a session. A refresh token is only
// issued when rememberMe is set.
func RunLogin(ctx context.Context, username, password string, rememberMe bool, deps LoginDeps) LoginResult {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{Failure: LoginFailureInput, Err: errors.New("username and password required")}
	}

	subject, err := deps.VerifyCredentials(ctx, username, password)
	if err != nil {
		failure := LoginFailureBackend
		if deps.InvalidCredentials != nil && errors.Is(err, deps.InvalidCredentials) {
			failure = LoginFailureCredentials
		}
		return LoginResult{Failure: failure, Err: err}
	}
	if subject.Username == "" {
		subject.Username = username
	}

	pair, err := IssuePair(subject, rememberMe, deps.Tokens)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Subject: subject}
	}
	return LoginResult{Subject: subject, Pair: pair}
}
