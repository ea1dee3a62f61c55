package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces revocation keys in Redis.
const DefaultPrefix = "blacklist:"

// putScript inserts KEYS[1] with PX ARGV[1], or raises the TTL of an existing
// key to ARGV[1] when it is currently lower. Keys without expiry are left as is.
//
// Returns 1 when the key was created, 0 otherwise.
var putScript = redis.NewScript(`
local want = tonumber(ARGV[1])
local pttl = redis.call("PTTL", KEYS[1])
if pttl == -2 then
  redis.call("SET", KEYS[1], "1", "PX", want)
  return 1
end
if pttl >= 0 and pttl < want then
  redis.call("PEXPIRE", KEYS[1], want)
end
return 0
`)

// Redis is a [Store] shared by every process connected to the same server.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a store that keeps entries under prefix. An empty prefix
// selects [DefaultPrefix].
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(id string) string {
	return r.prefix + id
}

// Put implements [Store].
func (r *Redis) Put(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if id == "" {
		return false, errors.New("revocation id required")
	}
	ttl = clampTTL(ttl)

	res, err := putScript.Run(ctx, r.client, []string{r.key(id)}, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res == 1, nil
}

// Contains implements [Store].
func (r *Redis) Contains(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, r.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// TTL returns the remaining lifetime of id, or zero when it is absent.
func (r *Redis) TTL(ctx context.Context, id string) (time.Duration, error) {
	d, err := r.client.PTTL(ctx, r.key(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
