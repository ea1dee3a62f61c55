package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/blogauth/jwt"
)

// LogoutResult reports what a logout revoked. Logout never fails; Errs only
// carries store errors for logging.
type LogoutResult struct {
	SubjectID string
	Revoked   []string
	Errs      []error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Parse     func(string) (*jwt.Token, error)
	Store     RevocationStore
	Now       func() time.Time
	ClockSkew time.Duration
}

// RunLogout revokes every presented token that still verifies, plus the
// refresh token an access token was paired with. Tokens that fail to parse are
// skipped: an expired or forged token needs no revocation entry.
func RunLogout(ctx context.Context, accessRaw, refreshRaw string, deps LogoutDeps) LogoutResult {
	var res LogoutResult
	now := deps.Now()

	revoke := func(id string, expiresAt time.Time) {
		if id == "" {
			return
		}
		ttl := RevocationTTL(expiresAt, now, deps.ClockSkew)
		if ttl <= 0 {
			return
		}
		if _, err := deps.Store.Put(ctx, id, ttl); err != nil {
			res.Errs = append(res.Errs, err)
			return
		}
		res.Revoked = append(res.Revoked, id)
	}

	for _, raw := range []string{accessRaw, refreshRaw} {
		if raw == "" {
			continue
		}
		tok, err := deps.Parse(raw)
		if err != nil {
			if !errors.Is(err, jwt.ErrExpired) && !errors.Is(err, jwt.ErrMalformed) && !errors.Is(err, jwt.ErrSignatureInvalid) {
				res.Errs = append(res.Errs, err)
			}
			continue
		}
		if res.SubjectID == "" {
			res.SubjectID = tok.Subject.ID
		}
		revoke(tok.ID, tok.ExpiresAt)
		if tok.Kind == jwt.KindAccess && tok.PairID != "" {
			revoke(tok.PairID, tok.PairExpiresAt)
		}
	}
	return res
}
