package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/blogauth/jwt"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login    LoginDeps
	Refresh  RefreshDeps
	Logout   LogoutDeps
	Validate ValidateDeps
}

// RevocationStore is the subset of the revocation store used by flows.
type RevocationStore interface {
	Put(ctx context.Context, id string, ttl time.Duration) (bool, error)
	Contains(ctx context.Context, id string) (bool, error)
}

// TokenDeps mints access/refresh pairs.
type TokenDeps struct {
	Issue      func(jwt.Subject, jwt.Kind, time.Duration, ...jwt.IssueOption) (*jwt.Token, error)
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Pair is a freshly minted access token and its optional refresh token.
type Pair struct {
	Access  *jwt.Token
	Refresh *jwt.Token
}

// IssuePair mints the refresh token first so the access token can reference it.
func IssuePair(subject jwt.Subject, withRefresh bool, deps TokenDeps) (Pair, error) {
	var pair Pair
	var opts []jwt.IssueOption
	if withRefresh {
		refresh, err := deps.Issue(subject, jwt.KindRefresh, deps.RefreshTTL)
		if err != nil {
			return Pair{}, err
		}
		pair.Refresh = refresh
		opts = append(opts, jwt.WithPair(refresh.ID, refresh.ExpiresAt))
	}

	access, err := deps.Issue(subject, jwt.KindAccess, deps.AccessTTL, opts...)
	if err != nil {
		return Pair{}, err
	}
	pair.Access = access
	return pair, nil
}

// RevocationTTL is how long an entry for a token expiring at expiresAt must
// live: until the codec stops accepting the token, including clock skew.
func RevocationTTL(expiresAt, now time.Time, skew time.Duration) time.Duration {
	ttl := expiresAt.Add(skew).Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
