package revocation

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultProbeInterval is how often a degraded [Failover] retries the remote store.
const DefaultProbeInterval = time.Second

// FailoverOptions configures [NewFailover].
type FailoverOptions struct {
	Logger *slog.Logger
	// ProbeInterval limits how often the remote store is retried while degraded.
	ProbeInterval time.Duration
	// OnStateChange is called once when an outage starts and once when it ends.
	OnStateChange func(degraded bool)
	Now           func() time.Time
}

// Failover serves from a remote [Store] and falls back to a local [Memory]
// while the remote store fails.
//
// Every id is also written to the local store, so ids revoked by this process
// before an outage stay revoked during it. Ids written during an outage stay
// in the local store until they expire, so Contains keeps reporting them after
// the remote store recovers.
type Failover struct {
	remote Store
	local  *Memory

	logger        *slog.Logger
	probeInterval time.Duration
	onStateChange func(bool)
	now           func() time.Time

	degraded  atomic.Bool
	nextProbe atomic.Int64
}

// NewFailover wraps remote with local as fallback.
func NewFailover(remote Store, local *Memory, opts FailoverOptions) *Failover {
	if local == nil {
		local = NewMemory()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = DefaultProbeInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Failover{
		remote:        remote,
		local:         local,
		logger:        opts.Logger,
		probeInterval: opts.ProbeInterval,
		onStateChange: opts.OnStateChange,
		now:           opts.Now,
	}
}

// Degraded reports whether the remote store is currently considered down.
func (f *Failover) Degraded() bool {
	return f.degraded.Load()
}

// Local exposes the fallback store.
func (f *Failover) Local() *Memory {
	return f.local
}

// Put implements [Store]. It never returns an error caused by the remote store.
// While healthy the remote store decides whether id was inserted and the local
// store is written through.
func (f *Failover) Put(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if f.tryRemote() {
		inserted, err := f.remote.Put(ctx, id, ttl)
		if err == nil {
			f.markHealthy()
			if _, err := f.local.Put(ctx, id, ttl); err != nil {
				return false, err
			}
			return inserted, nil
		}
		f.markDegraded(err)
	}
	return f.local.Put(ctx, id, ttl)
}

// Contains implements [Store]. It never returns an error caused by the remote store.
func (f *Failover) Contains(ctx context.Context, id string) (bool, error) {
	found, err := f.local.Contains(ctx, id)
	if err != nil || found {
		return found, err
	}
	if !f.tryRemote() {
		return false, nil
	}
	found, err = f.remote.Contains(ctx, id)
	if err != nil {
		f.markDegraded(err)
		return false, nil
	}
	f.markHealthy()
	return found, nil
}

// tryRemote reports whether the remote store should be used for this call.
// While degraded only one caller per probe interval is let through.
func (f *Failover) tryRemote() bool {
	if !f.degraded.Load() {
		return true
	}
	now := f.now().UnixNano()
	next := f.nextProbe.Load()
	if now < next {
		return false
	}
	return f.nextProbe.CompareAndSwap(next, now+int64(f.probeInterval))
}

func (f *Failover) markDegraded(err error) {
	f.nextProbe.Store(f.now().Add(f.probeInterval).UnixNano())
	if !f.degraded.CompareAndSwap(false, true) {
		return
	}
	f.logger.Warn("revocation store degraded, using process-local fallback",
		slog.Any("error", err),
		slog.String("guarantee", "reuse detection limited to this process"),
	)
	if f.onStateChange != nil {
		f.onStateChange(true)
	}
}

func (f *Failover) markHealthy() {
	if !f.degraded.CompareAndSwap(true, false) {
		return
	}
	f.logger.Info("revocation store recovered")
	if f.onStateChange != nil {
		f.onStateChange(false)
	}
}
