package password

import "errors"

var (
	// ErrUnknownFormat is returned for hashes that are neither Argon2id PHC
	// strings nor bcrypt hashes.
	ErrUnknownFormat = errors.New("password: unknown hash format")
	// ErrMalformedHash is returned for an argon2id string that cannot be decoded.
	ErrMalformedHash = errors.New("password: malformed argon2id hash")
	// ErrPasswordTooShort is returned when hashing a password under 8 bytes.
	ErrPasswordTooShort = errors.New("password: must be at least 8 bytes")
	// ErrPasswordTooLong is returned for input above the configured cap.
	ErrPasswordTooLong = errors.New("password: too long")
)
