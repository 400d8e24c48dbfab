package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*MockDistributedLock)(nil)

// MockDistributedLock is an in-memory DistributedLock with TTL expiry.
type MockDistributedLock struct {
	mu       sync.Mutex
	expiries map[string]time.Time
	acquires int
	extends  int

	AcquireFn func(name string, ttl time.Duration) (bool, error)
	ReleaseFn func(name string) error
	ExtendFn  func(name string, ttl time.Duration) error
	PingFn    func() error
}

// NewMockDistributedLock creates a new mock distributed lock.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{expiries: make(map[string]time.Time)}
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	m.acquires++
	m.mu.Unlock()

	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if exp, ok := m.expiries[name]; ok && time.Now().Before(exp) {
		return false, nil
	}
	m.expiries[name] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	if m.ReleaseFn != nil {
		return m.ReleaseFn(name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expiries, name)
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	m.extends++
	m.mu.Unlock()

	if m.ExtendFn != nil {
		return m.ExtendFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expiries[name]
	if !ok || time.Now().After(exp) {
		return fmt.Errorf("lock %s not held", name)
	}
	m.expiries[name] = time.Now().Add(ttl)
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// IsHeld reports whether name is held and unexpired.
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expiries[name]
	return ok && time.Now().Before(exp)
}

// HoldElsewhere marks name as held by another instance.
func (m *MockDistributedLock) HoldElsewhere(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expiries[name] = time.Now().Add(ttl)
}

// Acquires returns how many times Acquire was called.
func (m *MockDistributedLock) Acquires() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquires
}

// Extends returns how many times Extend was called.
func (m *MockDistributedLock) Extends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extends
}
