package revocation

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("revocation store unavailable")

// minTTL is the shortest lifetime an entry is stored with.
const minTTL = time.Second

// Store is a TTL-bound set of revoked token ids.
//
// Implementations must be safe for concurrent use, including across processes
// when the backing store is shared.
type Store interface {
	// Put records id for at least ttl. Inserting an id that is already present
	// never shortens its remaining visibility. inserted is true only for the
	// call that added the id.
	Put(ctx context.Context, id string, ttl time.Duration) (inserted bool, err error)
	// Contains reports whether id is currently revoked.
	Contains(ctx context.Context, id string) (bool, error)
}

// DegradedReporter is implemented by stores that can fall back to a weaker mode.
type DegradedReporter interface {
	Degraded() bool
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl < minTTL {
		return minTTL
	}
	return ttl
}
