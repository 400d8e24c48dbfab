package driven

import (
	"context"
	"time"
)

// DistributedLock guards sync runs across process instances that share one
// mirror. The in-process run token of the orchestrator is always used; this
// lock is added when several instances point at the same store.
type DistributedLock interface {
	// Acquire attempts to take the named lock without blocking.
	// Returns false when another holder has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives the lock back. Safe to call when not held.
	Release(ctx context.Context, name string) error

	// Extend pushes the TTL of a held lock. Implementations without TTL
	// treat it as a no-op.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
