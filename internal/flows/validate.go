package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/blogauth/jwt"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMalformed
	ValidateFailureSignature
	ValidateFailureExpired
	ValidateFailureWrongKind
	ValidateFailureRevoked
	ValidateFailureStore
)

// ValidateResult returns either the verified token or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Token   *jwt.Token
}

// ValidateDeps captures access-token validation dependencies.
type ValidateDeps struct {
	Parse func(string) (*jwt.Token, error)
	Store RevocationStore
}

// RunValidate verifies an access token. In strict mode the token id is also
// checked against the revocation store; otherwise no store round-trip happens.
func RunValidate(ctx context.Context, raw string, strict bool, deps ValidateDeps) ValidateResult {
	tok, err := deps.Parse(raw)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrExpired):
			return ValidateResult{Failure: ValidateFailureExpired, Err: err}
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return ValidateResult{Failure: ValidateFailureSignature, Err: err}
		default:
			return ValidateResult{Failure: ValidateFailureMalformed, Err: err}
		}
	}
	if tok.Kind != jwt.KindAccess {
		return ValidateResult{Failure: ValidateFailureWrongKind, Err: errors.New("refresh token presented as access token"), Token: tok}
	}

	if strict {
		revoked, err := deps.Store.Contains(ctx, tok.ID)
		if err != nil {
			return ValidateResult{Failure: ValidateFailureStore, Err: err, Token: tok}
		}
		if revoked {
			return ValidateResult{Failure: ValidateFailureRevoked, Err: errors.New("access token revoked"), Token: tok}
		}
	}
	return ValidateResult{Token: tok}
}
