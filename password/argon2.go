package password

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minPassBytes          = 8
	algorithmID           = "argon2id"
)

// Config holds Argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// MaxPasswordBytes caps input length so a huge password cannot pin a CPU.
	// Zero selects DefaultMaxPasswordBytes.
	MaxPasswordBytes int
}

// DefaultMaxPasswordBytes is the input cap used when Config leaves it unset.
const DefaultMaxPasswordBytes = 1024

// DefaultConfig returns 64 MiB, 3 passes, 2 lanes, 16 byte salt, 32 byte key.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("password: memory must be >= %d KiB", minMemoryKB)
	case c.Time < minTimeCost:
		return errors.New("password: time must be >= 1")
	case c.Parallelism < minParallelism:
		return errors.New("password: parallelism must be >= 1")
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("password: salt length must be >= %d", minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("password: key length must be >= %d", minKeyLength)
	case c.MaxPasswordBytes < 0:
		return errors.New("password: max bytes must be >= 0")
	}
	return nil
}

// Argon2 hashes passwords into PHC strings.
type Argon2 struct {
	config Config
}

// NewArgon2 rejects parameters below the package minimums.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a new salted hash. Passwords are hashed as raw bytes, without
// Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) < minPassBytes {
		return "", ErrPasswordTooShort
	}
	if len(password) > a.maxBytes() {
		return "", ErrPasswordTooLong
	}

	p := phc{
		params: params{
			memory:      a.config.Memory,
			time:        a.config.Time,
			parallelism: a.config.Parallelism,
		},
		salt: make([]byte, a.config.SaltLength),
		key:  make([]byte, a.config.KeyLength),
	}
	if _, err := rand.Read(p.salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}
	p.key = p.derive(password)
	return p.String(), nil
}

func (a *Argon2) maxBytes() int {
	if a.config.MaxPasswordBytes <= 0 {
		return DefaultMaxPasswordBytes
	}
	return a.config.MaxPasswordBytes
}

// Verify reports whether password matches encodedHash. The stored hash's own
// parameters are used, so hashes made under an older Config still verify.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	if len(password) > a.maxBytes() {
		return false, ErrPasswordTooLong
	}
	p, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(p.derive(password), p.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the current Config.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	p, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	weaker := p.memory < a.config.Memory ||
		p.time < a.config.Time ||
		p.parallelism < a.config.Parallelism ||
		uint32(len(p.key)) != a.config.KeyLength
	return weaker, nil
}
