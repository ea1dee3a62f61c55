package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// State is the coordinator's refresh state.
type State int

const (
	StateIdle State = iota
	StateRefreshing
)

func (s State) String() string {
	if s == StateRefreshing {
		return "refreshing"
	}
	return "idle"
}

// DefaultRefreshTimeout bounds one refresh round trip.
const DefaultRefreshTimeout = 10 * time.Second

// RefreshFunc performs one refresh round trip and stores the new tokens.
type RefreshFunc func(ctx context.Context) error

// Hooks observe refresh cycles. They run outside the coordinator lock.
type Hooks struct {
	// OnRefreshed fires after a successful cycle.
	OnRefreshed func()
	// OnSessionEnded fires once per failed cycle with the ErrRefreshExhausted error.
	OnSessionEnded func(err error)
}

// CoordinatorOptions configures a [Coordinator].
type CoordinatorOptions struct {
	// Timeout bounds the refresh call. Zero selects DefaultRefreshTimeout.
	Timeout time.Duration
	Hooks   Hooks
}

// Coordinator deduplicates refreshes for one session.
//
// The first [Coordinator.Wait] moves the coordinator from StateIdle to
// StateRefreshing and starts the refresh; later callers join the queue. When
// the refresh resolves every queued caller is released with its outcome and
// the state returns to StateIdle, so a later failure starts a new cycle.
type Coordinator struct {
	refresh RefreshFunc
	timeout time.Duration
	hooks   Hooks

	mu      sync.Mutex
	state   State
	waiters map[uint64]chan error
	nextID  uint64
	// generation counts successful cycles.
	generation uint64

	cycles atomic.Int64
}

func NewCoordinator(refresh RefreshFunc, opts CoordinatorOptions) *Coordinator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRefreshTimeout
	}
	return &Coordinator{
		refresh: refresh,
		timeout: opts.Timeout,
		hooks:   opts.Hooks,
		waiters: make(map[uint64]chan error),
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cycles returns how many refresh round trips have been started.
func (c *Coordinator) Cycles() int64 {
	return c.cycles.Load()
}

// Generation returns the number of successful refresh cycles so far.
func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Wait enters a refresh cycle, starting one if none is running, and blocks
// until it resolves. It returns nil when the caller should retry its request,
// an error wrapping ErrRefreshExhausted when the refresh failed, or ctx.Err()
// when the caller gave up first. Giving up does not affect the refresh itself.
func (c *Coordinator) Wait(ctx context.Context) error {
	return c.wait(ctx, nil)
}

// WaitAfter is Wait for a caller whose credentials date from generation gen.
// When a cycle has succeeded since then it returns nil at once instead of
// starting another refresh.
func (c *Coordinator) WaitAfter(ctx context.Context, gen uint64) error {
	return c.wait(ctx, &gen)
}

func (c *Coordinator) wait(ctx context.Context, seen *uint64) error {
	ch := make(chan error, 1)

	c.mu.Lock()
	if seen != nil && *seen != c.generation {
		c.mu.Unlock()
		return nil
	}
	id := c.nextID
	c.nextID++
	c.waiters[id] = ch
	if c.state == StateIdle {
		c.state = StateRefreshing
		c.cycles.Add(1)
		go c.run(context.WithoutCancel(ctx))
	}
	c.mu.Unlock()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.waiters, id)
		c.mu.Unlock()
		return ctx.Err()
	}
}

// run executes the refresh detached from any single waiter's cancellation.
func (c *Coordinator) run(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	err := c.refresh(ctx)
	cancel()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRefreshExhausted, err)
	}
	c.drain(err)
}

func (c *Coordinator) drain(err error) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = make(map[uint64]chan error)
	c.state = StateIdle
	if err == nil {
		c.generation++
	}
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- err
	}

	if err != nil {
		if c.hooks.OnSessionEnded != nil {
			c.hooks.OnSessionEnded(err)
		}
		return
	}
	if c.hooks.OnRefreshed != nil {
		c.hooks.OnRefreshed()
	}
}

func (c *Coordinator) queued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
