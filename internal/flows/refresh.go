package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/blogauth/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureInvalid
	RefreshFailureExpired
	RefreshFailureWrongKind
	RefreshFailureReuse
	RefreshFailureStore
	RefreshFailureIssue
)

const (
	gracePrefix     = "grace:"
	graceUsedPrefix = "grace-used:"
)

// RefreshResult carries either the rotated pair or failure metadata.
type RefreshResult struct {
	Failure   RefreshFailureKind
	Err       error
	Presented *jwt.Token
	Pair      Pair
	// Grace is set when a reused token was accepted inside the grace window.
	Grace bool
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Parse     func(string) (*jwt.Token, error)
	Tokens    TokenDeps
	Store     RevocationStore
	Now       func() time.Time
	ClockSkew time.Duration
	// GraceWindow, when positive, lets a just-rotated token be presented once
	// more within this window. Zero treats every reuse as theft.
	GraceWindow time.Duration
}

// RunRefresh rotates a refresh token into a new pair.
//
// The presented token id is inserted into the revocation store with a TTL equal
// to its remaining lifetime. Only the caller whose insert created the entry wins;
// every other presentation of the same token fails with RefreshFailureReuse.
func RunRefresh(ctx context.Context, raw string, deps RefreshDeps) RefreshResult {
	tok, err := deps.Parse(raw)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return RefreshResult{Failure: RefreshFailureExpired, Err: err}
		}
		return RefreshResult{Failure: RefreshFailureInvalid, Err: err}
	}
	if tok.Kind != jwt.KindRefresh {
		return RefreshResult{Failure: RefreshFailureWrongKind, Err: errors.New("access token presented as refresh token"), Presented: tok}
	}

	revoked, err := deps.Store.Contains(ctx, tok.ID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, Presented: tok}
	}
	if revoked {
		return runGrace(ctx, tok, deps)
	}

	if deps.GraceWindow > 0 {
		if _, err := deps.Store.Put(ctx, gracePrefix+tok.ID, deps.GraceWindow); err != nil {
			return RefreshResult{Failure: RefreshFailureStore, Err: err, Presented: tok}
		}
	}

	pair, err := IssuePair(tok.Subject, true, deps.Tokens)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, Presented: tok}
	}

	inserted, err := deps.Store.Put(ctx, tok.ID, RevocationTTL(tok.ExpiresAt, deps.Now(), deps.ClockSkew))
	if err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, Presented: tok}
	}
	if !inserted {
		// lost a concurrent rotation; the new pair is discarded
		return runGrace(ctx, tok, deps)
	}

	return RefreshResult{Presented: tok, Pair: pair}
}

func runGrace(ctx context.Context, tok *jwt.Token, deps RefreshDeps) RefreshResult {
	reuse := RefreshResult{Failure: RefreshFailureReuse, Err: errors.New("refresh token reused"), Presented: tok}
	if deps.GraceWindow <= 0 {
		return reuse
	}

	inGrace, err := deps.Store.Contains(ctx, gracePrefix+tok.ID)
	if err != nil || !inGrace {
		return reuse
	}
	claimed, err := deps.Store.Put(ctx, graceUsedPrefix+tok.ID, deps.GraceWindow)
	if err != nil || !claimed {
		return reuse
	}

	pair, err := IssuePair(tok.Subject, true, deps.Tokens)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, Presented: tok}
	}
	return RefreshResult{Presented: tok, Pair: pair, Grace: true}
}
