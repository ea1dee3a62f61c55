package revocation

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) count(substr string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), substr)
}

func newTestFailover(t *testing.T) (*Failover, *miniredis.Miniredis, *logBuffer, *testClock, *[]bool) {
	t.Helper()
	mr, rdb := newTestRedis(t)
	logs := &logBuffer{}
	clock := newTestClock()
	var transitions []bool
	f := NewFailover(NewRedis(rdb, ""), NewMemory(WithClock(clock.Now)), FailoverOptions{
		Logger:        slog.New(slog.NewTextHandler(logs, nil)),
		ProbeInterval: time.Second,
		OnStateChange: func(degraded bool) { transitions = append(transitions, degraded) },
		Now:           clock.Now,
	})
	return f, mr, logs, clock, &transitions
}

func TestFailoverHealthyUsesRemote(t *testing.T) {
	ctx := context.Background()
	f, mr, logs, _, _ := newTestFailover(t)

	inserted, err := f.Put(ctx, "a", time.Minute)
	if err != nil || !inserted {
		t.Fatalf("put: inserted=%v err=%v", inserted, err)
	}
	if !mr.Exists("blacklist:a") {
		t.Fatal("expected entry in redis")
	}
	if f.Local().Len() != 1 {
		t.Fatal("expected healthy write to reach the local store too")
	}
	if ttl := f.Local().TTL("a"); ttl != time.Minute {
		t.Fatalf("local ttl = %v, want %v", ttl, time.Minute)
	}
	if f.Degraded() || logs.count("degraded") != 0 {
		t.Fatal("did not expect degradation")
	}
}

func TestFailoverRemembersIDsRevokedBeforeOutage(t *testing.T) {
	ctx := context.Background()
	f, mr, _, _, _ := newTestFailover(t)

	if inserted, err := f.Put(ctx, "rotated", time.Hour); err != nil || !inserted {
		t.Fatalf("put: inserted=%v err=%v", inserted, err)
	}

	mr.SetError("connection refused")
	if ok, err := f.Contains(ctx, "rotated"); err != nil || !ok {
		t.Fatalf("contains during outage: ok=%v err=%v", ok, err)
	}
	inserted, err := f.Put(ctx, "rotated", time.Hour)
	if err != nil {
		t.Fatalf("put during outage: %v", err)
	}
	if inserted {
		t.Fatal("expected id revoked before the outage to stay revoked")
	}
}

func TestFailoverOutageFallsBackAndLogsOnce(t *testing.T) {
	ctx := context.Background()
	f, mr, logs, clock, transitions := newTestFailover(t)

	mr.SetError("connection refused")

	for i := 0; i < 20; i++ {
		clock.Advance(2 * time.Second)
		if _, err := f.Put(ctx, "jti-"+string(rune('a'+i)), time.Hour); err != nil {
			t.Fatalf("put during outage must not fail: %v", err)
		}
		if ok, err := f.Contains(ctx, "missing"); err != nil || ok {
			t.Fatalf("contains during outage: ok=%v err=%v", ok, err)
		}
	}

	if !f.Degraded() {
		t.Fatal("expected degraded state")
	}
	if n := logs.count("revocation store degraded"); n != 1 {
		t.Fatalf("expected exactly one degradation warning, got %d", n)
	}
	if len(*transitions) != 1 || !(*transitions)[0] {
		t.Fatalf("unexpected transitions %v", *transitions)
	}

	inserted, _ := f.Put(ctx, "jti-a", time.Hour)
	if inserted {
		t.Fatal("expected reuse within the process to be detected locally")
	}
	if ok, _ := f.Contains(ctx, "jti-a"); !ok {
		t.Fatal("expected local store to report revoked id")
	}
}

func TestFailoverRecoveryKeepsLocalEntries(t *testing.T) {
	ctx := context.Background()
	f, mr, logs, clock, transitions := newTestFailover(t)

	mr.SetError("connection refused")
	if _, err := f.Put(ctx, "during-outage", time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}

	mr.SetError("")
	clock.Advance(2 * time.Second)
	if ok, err := f.Contains(ctx, "other"); err != nil || ok {
		t.Fatalf("contains after recovery: ok=%v err=%v", ok, err)
	}
	if f.Degraded() {
		t.Fatal("expected recovery after successful probe")
	}
	if logs.count("revocation store recovered") != 1 {
		t.Fatal("expected one recovery log")
	}
	if len(*transitions) != 2 || (*transitions)[1] {
		t.Fatalf("unexpected transitions %v", *transitions)
	}

	if ok, _ := f.Contains(ctx, "during-outage"); !ok {
		t.Fatal("expected outage entry to stay revoked after recovery")
	}
}

func TestFailoverProbesAtMostOncePerInterval(t *testing.T) {
	ctx := context.Background()
	f, mr, _, clock, _ := newTestFailover(t)

	mr.SetError("connection refused")
	_, _ = f.Put(ctx, "a", time.Minute)

	mr.SetError("")
	// inside the probe interval the remote is not consulted
	_, _ = f.Put(ctx, "b", time.Minute)
	if mr.Exists("blacklist:b") || !f.Degraded() {
		t.Fatal("expected write to stay local before the next probe")
	}

	clock.Advance(time.Second)
	_, _ = f.Put(ctx, "c", time.Minute)
	if !mr.Exists("blacklist:c") || f.Degraded() {
		t.Fatal("expected probe to reach redis after the interval")
	}
}

func TestOpenSelectsImplementation(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(&logBuffer{}, nil))

	if _, ok := Open(ctx, Options{Logger: logger}).(*Memory); !ok {
		t.Fatal("expected memory store without redis")
	}

	mr, rdb := newTestRedis(t)
	store := Open(ctx, Options{Redis: rdb, Logger: logger})
	f, ok := store.(*Failover)
	if !ok {
		t.Fatalf("expected failover store, got %T", store)
	}
	if f.Degraded() {
		t.Fatal("expected healthy start")
	}

	mr.SetError("down")
	degraded := Open(ctx, Options{Redis: rdb, Logger: logger}).(*Failover)
	if !degraded.Degraded() {
		t.Fatal("expected degraded start when ping fails")
	}
}
