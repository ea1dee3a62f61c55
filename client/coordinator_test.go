package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func waitQueued(t *testing.T, c *Coordinator, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.queued() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d queued waiters, have %d", n, c.queued())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestConcurrentWaitersShareOneRefresh(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	c := NewCoordinator(func(ctx context.Context) error {
		calls.Add(1)
		<-release
		return nil
	}, CoordinatorOptions{})

	const n = 20
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error { return c.Wait(context.Background()) })
	}
	waitQueued(t, c, n)
	if c.State() != StateRefreshing {
		t.Fatalf("expected refreshing, got %v", c.State())
	}
	close(release)

	if err := g.Wait(); err != nil {
		t.Fatalf("waiters must be released to retry: %v", err)
	}
	if calls.Load() != 1 || c.Cycles() != 1 {
		t.Fatalf("expected one refresh, got calls=%d cycles=%d", calls.Load(), c.Cycles())
	}
	if c.State() != StateIdle {
		t.Fatal("expected idle after success")
	}
}

func TestFailedRefreshReleasesEveryWaiter(t *testing.T) {
	cause := errors.New("refresh token expired")
	release := make(chan struct{})
	var ended atomic.Int32
	c := NewCoordinator(func(ctx context.Context) error {
		<-release
		return cause
	}, CoordinatorOptions{Hooks: Hooks{OnSessionEnded: func(err error) {
		if !errors.Is(err, ErrRefreshExhausted) {
			t.Errorf("hook got %v", err)
		}
		ended.Add(1)
	}}})

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() { errs <- c.Wait(context.Background()) }()
	}
	waitQueued(t, c, n)
	close(release)

	for i := 0; i < n; i++ {
		err := <-errs
		if !errors.Is(err, ErrRefreshExhausted) || !errors.Is(err, cause) {
			t.Fatalf("expected exhausted error wrapping cause, got %v", err)
		}
	}
	if ended.Load() != 1 {
		t.Fatalf("expected session-ended hook once, got %d", ended.Load())
	}
	if c.State() != StateIdle {
		t.Fatal("expected idle after failure")
	}

	// no lockout: a later caller starts a new cycle
	if err := c.Wait(context.Background()); !errors.Is(err, cause) {
		t.Fatalf("expected second cycle to run, got %v", err)
	}
	if c.Cycles() != 2 {
		t.Fatalf("expected two cycles, got %d", c.Cycles())
	}
}

func TestCanceledWaiterLeavesQueue(t *testing.T) {
	release := make(chan struct{})
	var refreshCtxErr atomic.Value
	c := NewCoordinator(func(ctx context.Context) error {
		<-release
		refreshCtxErr.Store(ctx.Err() == nil)
		return nil
	}, CoordinatorOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	canceled := make(chan error, 1)
	go func() { canceled <- c.Wait(ctx) }()
	waitQueued(t, c, 1)

	other := make(chan error, 1)
	go func() { other <- c.Wait(context.Background()) }()
	waitQueued(t, c, 2)

	cancel()
	if err := <-canceled; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	waitQueued(t, c, 1)

	close(release)
	if err := <-other; err != nil {
		t.Fatalf("remaining waiter: %v", err)
	}
	if ok, _ := refreshCtxErr.Load().(bool); !ok {
		t.Fatal("canceling the first waiter must not cancel the refresh")
	}
}

func TestRefreshTimeoutIsFailure(t *testing.T) {
	c := NewCoordinator(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, CoordinatorOptions{Timeout: 20 * time.Millisecond})

	err := c.Wait(context.Background())
	if !errors.Is(err, ErrRefreshExhausted) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timed-out refresh to exhaust, got %v", err)
	}
	if c.State() != StateIdle {
		t.Fatal("expected idle after timeout")
	}
}

func TestWaitAfterCompletedCycleDoesNotRefreshAgain(t *testing.T) {
	var calls atomic.Int32
	c := NewCoordinator(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, CoordinatorOptions{})

	// a request captured generation 0, then another request's refresh
	// completed before it reached the coordinator
	gen := c.Generation()
	if err := c.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if c.Generation() != gen+1 {
		t.Fatalf("expected generation %d, got %d", gen+1, c.Generation())
	}

	if err := c.WaitAfter(context.Background(), gen); err != nil {
		t.Fatalf("wait after: %v", err)
	}
	if calls.Load() != 1 || c.Cycles() != 1 {
		t.Fatalf("expected no second refresh, calls=%d cycles=%d", calls.Load(), c.Cycles())
	}

	// an up to date caller still starts a cycle
	if err := c.WaitAfter(context.Background(), c.Generation()); err != nil {
		t.Fatalf("wait after current generation: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected a second refresh, got %d", calls.Load())
	}
}

func TestFailedCycleKeepsGeneration(t *testing.T) {
	c := NewCoordinator(func(ctx context.Context) error {
		return errors.New("refresh rejected")
	}, CoordinatorOptions{})

	if err := c.Wait(context.Background()); !errors.Is(err, ErrRefreshExhausted) {
		t.Fatalf("expected ErrRefreshExhausted, got %v", err)
	}
	if c.Generation() != 0 {
		t.Fatalf("failed cycle must not advance generation, got %d", c.Generation())
	}
}
