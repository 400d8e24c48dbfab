package postgres

import (
	"context"
	"database/sql"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock implements DistributedLock using PostgreSQL session advisory
// locks.
//
// Advisory locks belong to the session that took them, so each held lock
// pins one pooled connection until Release. There is no TTL: the lock
// lives until released or until the connection drops, and Extend is a
// no-op. Use the Redis lock when expiry matters.
type AdvisoryLock struct {
	db *DB

	mu    sync.Mutex
	conns map[string]*sql.Conn
}

// NewAdvisoryLock creates a new PostgreSQL advisory lock adapter.
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{db: db, conns: make(map[string]*sql.Conn)}
}

// hashLockName maps a lock name to the 64-bit key advisory locks take.
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("tgb:lock:" + name))
	return int64(h.Sum64())
}

// Acquire tries pg_try_advisory_lock without blocking. The ttl is ignored.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.conns[name]; held {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", hashLockName(name)).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}

	l.conns[name] = conn
	return true, nil
}

// Release unlocks on the session that acquired the lock and returns the
// connection to the pool. Safe to call when not held.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	conn, held := l.conns[name]
	delete(l.conns, name)
	l.mu.Unlock()

	if !held {
		return nil
	}
	defer conn.Close()

	var released bool
	return conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", hashLockName(name)).Scan(&released)
}

// Extend is a no-op: advisory locks do not expire.
func (l *AdvisoryLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	return nil
}

// Ping checks if the PostgreSQL backend is healthy.
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
