package credentials

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/blogauth/password"
	"github.com/oklog/ulid/v2"
)

// MemorySource keeps users in a map. Usernames are matched case-insensitively.
type MemorySource struct {
	mu     sync.RWMutex
	users  map[string]User
	hasher password.Hasher
}

// NewMemorySource hashes seeded passwords with hasher; nil selects Argon2id
// with default parameters.
func NewMemorySource(hasher password.Hasher) *MemorySource {
	if hasher == nil {
		hasher = password.NewVerifier(nil)
	}
	return &MemorySource{
		users:  make(map[string]User),
		hasher: hasher,
	}
}

// Add creates a user with a ULID id.
func (s *MemorySource) Add(username, email, plain string) (User, error) {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:           ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	return u, s.Put(u)
}

// Put stores u as is, e.g. with a bcrypt hash imported from elsewhere.
func (s *MemorySource) Put(u User) error {
	key := strings.ToLower(u.Username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.users[key]; ok && existing.ID != u.ID {
		return ErrUserExists
	}
	s.users[key] = u
	return nil
}

func (s *MemorySource) FindByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[strings.ToLower(username)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *MemorySource) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, u := range s.users {
		if u.ID == userID {
			u.PasswordHash = hash
			s.users[key] = u
			return nil
		}
	}
	return ErrUserNotFound
}
