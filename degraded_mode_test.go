package blogauth

import (
	"context"
	"errors"
	"testing"
)

func TestRedisOutageFallsBackToLocalStore(t *testing.T) {
	mr, rdb := newTestRedis(t)
	logs := &logBuffer{}
	e := newRedisEngine(t, rdb, logs)
	ctx := context.Background()

	pair := mustLogin(t, e, true)
	if e.StoreDegraded() {
		t.Fatal("store must start healthy")
	}

	mr.SetError("READONLY outage")

	rotated, err := e.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh must keep working during an outage: %v", err)
	}
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("reuse must still be detected in-process, got %v", err)
	}
	if _, err := e.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("second rotation during outage: %v", err)
	}

	if !e.StoreDegraded() {
		t.Fatal("expected degraded store")
	}
	if got := logs.Count("revocation store degraded"); got != 1 {
		t.Fatalf("expected one degradation log per outage, got %d", got)
	}
	if got := e.MetricsSnapshot().Counters[MetricStoreDegraded]; got != 1 {
		t.Fatalf("expected one degraded transition, got %d", got)
	}
}

func TestTokenRotatedBeforeOutageStaysRevoked(t *testing.T) {
	mr, rdb := newTestRedis(t)
	e := newRedisEngine(t, rdb, &logBuffer{})
	ctx := context.Background()

	pair := mustLogin(t, e, true)
	if _, err := e.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("healthy refresh: %v", err)
	}

	mr.SetError("READONLY outage")
	if _, err := e.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected reuse of a token rotated before the outage, got %v", err)
	}
}

func TestStartupWithUnreachableRedisIsDegraded(t *testing.T) {
	mr, rdb := newTestRedis(t)
	mr.Close()
	logs := &logBuffer{}

	e := newRedisEngine(t, rdb, logs)
	if !e.StoreDegraded() {
		t.Fatal("expected engine to start degraded")
	}
	if logs.Count("revocation store degraded") != 1 {
		t.Fatal("expected startup degradation warning")
	}

	pair := mustLogin(t, e, true)
	if _, err := e.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("refresh while degraded: %v", err)
	}
	if _, err := e.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected local reuse detection, got %v", err)
	}
}

func TestNoRedisWarnsAboutProcessLocalStore(t *testing.T) {
	logs := &logBuffer{}
	e, err := New().
		WithConfig(testConfig()).
		WithCredentialVerifier(testVerifier()).
		WithLogger(logs.Logger()).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()

	if logs.Count("process-local store") != 1 {
		t.Fatal("expected a warning about process-local revocation")
	}
	if e.StoreDegraded() {
		t.Fatal("a memory-only engine is not degraded")
	}
}
