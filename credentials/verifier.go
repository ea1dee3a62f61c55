package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/blogauth"
	"github.com/MrEthical07/blogauth/password"
)

const dummyPassword = "blogauth-timing-equalizer"

// Verifier checks passwords against a [Source].
type Verifier struct {
	source    Source
	passwords *password.Verifier
	logger    *slog.Logger
	dummyHash string
}

// VerifierOptions configures a [Verifier].
type VerifierOptions struct {
	// Argon2 is used for new and upgraded hashes. Nil selects password.DefaultConfig.
	Argon2 *password.Argon2
	Logger *slog.Logger
}

// NewVerifier prepares a dummy hash so lookups of unknown users cost the same
// as a wrong password.
func NewVerifier(source Source, opts VerifierOptions) (*Verifier, error) {
	if source == nil {
		return nil, errors.New("credentials: nil source")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	pw := password.NewVerifier(opts.Argon2)
	dummy, err := pw.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("credentials: dummy hash: %w", err)
	}
	return &Verifier{
		source:    source,
		passwords: pw,
		logger:    opts.Logger,
		dummyHash: dummy,
	}, nil
}

// Verify implements blogauth.CredentialVerifier. Unknown users and wrong
// passwords both return blogauth.ErrInvalidCredentials.
func (v *Verifier) Verify(ctx context.Context, username, pass string) (blogauth.Identity, error) {
	user, err := v.source.FindByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		_, _ = v.passwords.Verify(pass, v.dummyHash)
		return blogauth.Identity{}, blogauth.ErrInvalidCredentials
	}
	if err != nil {
		return blogauth.Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := v.passwords.Verify(pass, user.PasswordHash)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return blogauth.Identity{}, blogauth.ErrInvalidCredentials
		}
		return blogauth.Identity{}, fmt.Errorf("verify password for %s: %w", user.ID, err)
	}
	if !ok {
		return blogauth.Identity{}, blogauth.ErrInvalidCredentials
	}

	v.maybeUpgrade(ctx, user, pass)

	return blogauth.Identity{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}, nil
}

// maybeUpgrade re-hashes legacy or weaker hashes. Failures only log.
func (v *Verifier) maybeUpgrade(ctx context.Context, user User, pass string) {
	updater, ok := v.source.(HashUpdater)
	if !ok {
		return
	}
	needs, err := v.passwords.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := v.passwords.Hash(pass)
	if err != nil {
		// passwords shorter than the current minimum keep their old hash
		return
	}
	if err := updater.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		v.logger.WarnContext(ctx, "password hash upgrade failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}
}
