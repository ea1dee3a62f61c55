package revocation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

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

func TestMemoryPutContains(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	m := NewMemory(WithClock(clock.Now))

	inserted, err := m.Put(ctx, "a", time.Minute)
	if err != nil || !inserted {
		t.Fatalf("first put: inserted=%v err=%v", inserted, err)
	}
	inserted, err = m.Put(ctx, "a", time.Minute)
	if err != nil || inserted {
		t.Fatalf("second put: inserted=%v err=%v", inserted, err)
	}
	if ok, _ := m.Contains(ctx, "a"); !ok {
		t.Fatal("expected a to be revoked")
	}
	if ok, _ := m.Contains(ctx, "b"); ok {
		t.Fatal("did not expect b to be revoked")
	}
}

func TestMemoryPutNeverShortens(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	m := NewMemory(WithClock(clock.Now))

	_, _ = m.Put(ctx, "a", 10*time.Minute)
	_, _ = m.Put(ctx, "a", time.Minute)
	if got := m.TTL("a"); got != 10*time.Minute {
		t.Fatalf("expected ttl to stay 10m, got %v", got)
	}
	_, _ = m.Put(ctx, "a", 20*time.Minute)
	if got := m.TTL("a"); got != 20*time.Minute {
		t.Fatalf("expected ttl to extend to 20m, got %v", got)
	}
}

func TestMemoryEntriesExpireWithTheirTTL(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	m := NewMemory(WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		_, _ = m.Put(ctx, string(rune('a'+i)), time.Duration(i+1)*time.Minute)
	}
	if m.Len() != 10 {
		t.Fatalf("expected 10 entries, got %d", m.Len())
	}

	clock.Advance(5 * time.Minute)
	if m.Len() != 5 {
		t.Fatalf("expected 5 live entries, got %d", m.Len())
	}
	if ok, _ := m.Contains(ctx, "a"); ok {
		t.Fatal("expected a to have expired")
	}

	clock.Advance(5 * time.Minute)
	if m.Len() != 0 {
		t.Fatalf("expected store to drain, got %d", m.Len())
	}

	inserted, _ := m.Put(ctx, "a", time.Minute)
	if !inserted {
		t.Fatal("expected expired id to be insertable again")
	}
}

func TestMemoryConcurrentPutSingleWinner(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := m.Put(ctx, "jti", time.Minute)
			if err != nil {
				t.Errorf("put: %v", err)
				return
			}
			if inserted {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one insert, got %d", wins.Load())
	}
}
