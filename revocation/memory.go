package revocation

import (
	"context"
	"errors"
	"sync"
	"time"
)

const sweepEvery = 256

// Memory is a process-local [Store].
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	writes  int
	now     func() time.Time
}

// MemoryOption configures a [Memory] store.
type MemoryOption func(*Memory)

// WithClock replaces the time source. Used by tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory returns an empty in-process store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Put implements [Store].
func (m *Memory) Put(_ context.Context, id string, ttl time.Duration) (bool, error) {
	if id == "" {
		return false, errors.New("revocation id required")
	}
	now := m.now()
	expiresAt := now.Add(clampTTL(ttl))

	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes++
	if m.writes%sweepEvery == 0 {
		m.sweepLocked(now)
	}

	current, ok := m.entries[id]
	if ok && current.After(now) {
		if expiresAt.After(current) {
			m.entries[id] = expiresAt
		}
		return false, nil
	}
	m.entries[id] = expiresAt
	return true, nil
}

// Contains implements [Store].
func (m *Memory) Contains(_ context.Context, id string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt, ok := m.entries[id]
	if !ok {
		return false, nil
	}
	if !expiresAt.After(now) {
		delete(m.entries, id)
		return false, nil
	}
	return true, nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked(now)
	return len(m.entries)
}

// TTL returns the remaining lifetime of id, or zero when it is absent.
func (m *Memory) TTL(id string) time.Duration {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt, ok := m.entries[id]
	if !ok || !expiresAt.After(now) {
		return 0
	}
	return expiresAt.Sub(now)
}

func (m *Memory) sweepLocked(now time.Time) {
	for id, expiresAt := range m.entries {
		if !expiresAt.After(now) {
			delete(m.entries, id)
		}
	}
}
