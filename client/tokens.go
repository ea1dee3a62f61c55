package client

import "sync"

// TokenStore holds the current session tokens in memory.
type TokenStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

func (s *TokenStore) Access() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *TokenStore) Refresh() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// Set replaces both tokens. An empty refresh token means the session cannot
// be extended.
func (s *TokenStore) Set(access, refresh string) {
	s.mu.Lock()
	s.access, s.refresh = access, refresh
	s.mu.Unlock()
}

func (s *TokenStore) Clear() {
	s.Set("", "")
}
