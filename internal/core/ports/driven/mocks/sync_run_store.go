package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

var _ driven.SyncRunStore = (*MockSyncRunStore)(nil)

// MockSyncRunStore is an in-memory SyncRunStore for testing
type MockSyncRunStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.SyncRun

	SaveRunFn func(run *domain.SyncRun) error
}

// NewMockSyncRunStore creates a new MockSyncRunStore
func NewMockSyncRunStore() *MockSyncRunStore {
	return &MockSyncRunStore{runs: make(map[string]*domain.SyncRun)}
}

func (m *MockSyncRunStore) SaveRun(ctx context.Context, run *domain.SyncRun) error {
	if m.SaveRunFn != nil {
		return m.SaveRunFn(run)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *MockSyncRunStore) LatestRun(ctx context.Context) (*domain.SyncRun, error) {
	runs, _ := m.ListRuns(ctx, 1)
	if len(runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return runs[0], nil
}

func (m *MockSyncRunStore) ListRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.SyncRun, 0, len(m.runs))
	for _, r := range m.runs {
		cp := *r
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartedAt.After(result[j].StartedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Count returns the number of stored runs.
func (m *MockSyncRunStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}
