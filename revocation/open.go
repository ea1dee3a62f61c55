package revocation

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options selects and configures the store built by [Open].
type Options struct {
	// Redis is the shared backend. When nil a process-local store is used.
	Redis         redis.UniversalClient
	Prefix        string
	Logger        *slog.Logger
	ProbeInterval time.Duration
	OnStateChange func(degraded bool)
}

// Open picks the store implementation once at startup.
//
// Without a Redis client it returns a [Memory] store and logs that reuse
// detection is process-local. With a client it returns a [Failover] that
// starts degraded when the initial ping fails; Open itself never fails
// because of Redis.
func Open(ctx context.Context, opts Options) Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Redis == nil {
		logger.Warn("no shared revocation store configured, using process-local store")
		return NewMemory()
	}

	remote := NewRedis(opts.Redis, opts.Prefix)
	failover := NewFailover(remote, NewMemory(), FailoverOptions{
		Logger:        logger,
		ProbeInterval: opts.ProbeInterval,
		OnStateChange: opts.OnStateChange,
	})
	if err := remote.Ping(ctx); err != nil {
		failover.markDegraded(err)
	}
	return failover
}
