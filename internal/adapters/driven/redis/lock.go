package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "tgb:lock:"

// ErrLockNotHeld is returned by Extend when this instance no longer owns the lock
var ErrLockNotHeld = errors.New("lock not held by this instance")

// Lock implements DistributedLock with SET NX PX.
// The value is an owner token so one instance never releases or extends
// a lock another instance took after expiry.
type Lock struct {
	client  redis.UniversalClient
	ownerID string
}

// NewLock creates a lock bound to client with a fresh owner token
func NewLock(client redis.UniversalClient) *Lock {
	hostname, _ := os.Hostname()
	return &Lock{
		client:  client,
		ownerID: fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.NewString()),
	}
}

// Acquire takes the lock if nobody holds it
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockPrefix+name, l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Release deletes the lock when this instance owns it
func (l *Lock) Release(ctx context.Context, name string) error {
	err := releaseScript.Run(ctx, l.client, []string{lockPrefix + name}, l.ownerID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

// Extend resets the TTL of a lock this instance owns
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{lockPrefix + name}, l.ownerID, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("extend lock %s: %w", name, ErrLockNotHeld)
	}
	return nil
}

// Ping checks the Redis connection
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID identifies this holder in logs
func (l *Lock) OwnerID() string {
	return l.ownerID
}
