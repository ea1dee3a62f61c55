package password

import "strings"

// Hasher is implemented by [Argon2] and [Bcrypt].
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Verifier checks a password against a stored hash of any supported format.
type Verifier struct {
	argon  *Argon2
	bcrypt *Bcrypt
}

// NewVerifier verifies Argon2id hashes with argon and bcrypt hashes with the
// default cost. A nil argon uses [DefaultConfig].
func NewVerifier(argon *Argon2) *Verifier {
	if argon == nil {
		// DefaultConfig always validates
		argon, _ = NewArgon2(DefaultConfig())
	}
	b, _ := NewBcrypt(0)
	return &Verifier{argon: argon, bcrypt: b}
}

// Verify dispatches on the hash prefix.
func (v *Verifier) Verify(password, encodedHash string) (bool, error) {
	h, err := v.hasherFor(encodedHash)
	if err != nil {
		return false, err
	}
	return h.Verify(password, encodedHash)
}

// NeedsUpgrade reports whether encodedHash should be replaced by a fresh
// Argon2id hash after the next successful login.
func (v *Verifier) NeedsUpgrade(encodedHash string) (bool, error) {
	h, err := v.hasherFor(encodedHash)
	if err != nil {
		return false, err
	}
	return h.NeedsUpgrade(encodedHash)
}

// Hash always produces Argon2id.
func (v *Verifier) Hash(password string) (string, error) {
	return v.argon.Hash(password)
}

func (v *Verifier) hasherFor(encodedHash string) (Hasher, error) {
	switch {
	case strings.HasPrefix(encodedHash, phcPrefix):
		return v.argon, nil
	case IsBcrypt(encodedHash):
		return v.bcrypt, nil
	default:
		return nil, ErrUnknownFormat
	}
}

// IsBcrypt reports whether encodedHash looks like a bcrypt hash.
func IsBcrypt(encodedHash string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(encodedHash, prefix) {
			return true
		}
	}
	return false
}
