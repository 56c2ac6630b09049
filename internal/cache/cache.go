package cache

import (
	"context"
	"time"
)

// SeenCache remembers which article URLs have already been collected,
// across process restarts. It is an optimization on top of the URL
// uniqueness constraint in the store, not a correctness mechanism.
type SeenCache interface {
	IsSeen(ctx context.Context, hash string) (bool, error)
	MarkSeen(ctx context.Context, hash string, ttl time.Duration) error
	Clear(ctx context.Context) error
	Close() error
}
