package blogauth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/blogauth/revocation"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte("blogauth-test-secret-0123456789abcdef")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) Count(substr string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), substr)
}

func (b *logBuffer) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(b, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var errVerifierDown = errors.New("users table unavailable")

func testVerifier() CredentialVerifier {
	return CredentialVerifierFunc(func(_ context.Context, username, password string) (Identity, error) {
		switch {
		case username == "alice" && password == "correct":
			return Identity{ID: "1", Username: "alice", Email: "alice@example.com"}, nil
		case username == "bob" && password == "hunter22":
			return Identity{ID: "2", Username: "bob"}, nil
		case username == "outage":
			return Identity{}, errVerifierDown
		default:
			return Identity{}, ErrInvalidCredentials
		}
	})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = testSecret
	cfg.JWT.Issuer = "blogauth-test"
	return cfg
}

type testEngine struct {
	*Engine
	clock *testClock
	store *revocation.Memory
	logs  *logBuffer
}

// newTestEngine builds an engine on a fake clock with a process-local store.
func newTestEngine(t *testing.T, mutate func(*Config)) *testEngine {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	clock := newTestClock()
	store := revocation.NewMemory(revocation.WithClock(clock.Now))
	logs := &logBuffer{}

	engine, err := New().
		WithConfig(cfg).
		WithCredentialVerifier(testVerifier()).
		WithRevocationStore(store).
		WithLogger(logs.Logger()).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return &testEngine{Engine: engine, clock: clock, store: store, logs: logs}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

// newRedisEngine builds an engine sharing revocation state through miniredis.
func newRedisEngine(t *testing.T, rdb *redis.Client, logs *logBuffer) *Engine {
	t.Helper()
	engine, err := New().
		WithConfig(testConfig()).
		WithCredentialVerifier(testVerifier()).
		WithRedis(rdb).
		WithLogger(logs.Logger()).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func mustLogin(t *testing.T, e *Engine, rememberMe bool) *TokenPair {
	t.Helper()
	pair, err := e.Login(context.Background(), LoginRequest{Username: "alice", Password: "correct", RememberMe: rememberMe})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return pair
}
