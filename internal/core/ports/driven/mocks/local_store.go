package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

var _ driven.LocalStore = (*MockLocalStore)(nil)

// MockLocalStore is an in-memory LocalStore for testing.
// Setting a *Fn hook replaces the default behavior of that operation, which
// is how tests inject storage faults.
type MockLocalStore struct {
	mu        sync.RWMutex
	topics    map[int64]*domain.Topic
	bookmarks map[int64]*domain.Bookmark
	cursor    *domain.SyncCursor
	calls     []string

	UpsertTopicFn          func(id int64, title string) error
	UpsertBookmarksBatchFn func(items []*domain.Bookmark) error
	PruneBookmarksFn       func(topicID int64, activeIDs []int64) (int, error)
	DeleteBookmarksByIDsFn func(ids []int64) (int, error)
	GetCursorFn            func() (*domain.SyncCursor, error)
	SetCursorFn            func(pts int64) error
	PingFn                 func() error
}

// NewMockLocalStore creates an empty MockLocalStore
func NewMockLocalStore() *MockLocalStore {
	return &MockLocalStore{
		topics:    make(map[int64]*domain.Topic),
		bookmarks: make(map[int64]*domain.Bookmark),
	}
}

func (m *MockLocalStore) record(call string) {
	m.calls = append(m.calls, call)
}

func (m *MockLocalStore) UpsertTopic(ctx context.Context, id int64, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UpsertTopic")
	if m.UpsertTopicFn != nil {
		return m.UpsertTopicFn(id, title)
	}
	m.topics[id] = &domain.Topic{ID: id, Title: title, LastSynced: time.Now()}
	return nil
}

func (m *MockLocalStore) ListTopics(ctx context.Context) ([]*domain.Topic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Topic, 0, len(m.topics))
	for _, t := range m.topics {
		cp := *t
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockLocalStore) GetTopic(ctx context.Context, id int64) (*domain.Topic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.topics[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockLocalStore) UpsertBookmarksBatch(ctx context.Context, items []*domain.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UpsertBookmarksBatch")
	if m.UpsertBookmarksBatchFn != nil {
		return m.UpsertBookmarksBatchFn(items)
	}
	for _, b := range items {
		cp := *b
		m.bookmarks[b.ID] = &cp
	}
	return nil
}

func (m *MockLocalStore) PruneBookmarks(ctx context.Context, topicID int64, activeIDs []int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("PruneBookmarks")
	if m.PruneBookmarksFn != nil {
		return m.PruneBookmarksFn(topicID, activeIDs)
	}
	keep := make(map[int64]struct{}, len(activeIDs))
	for _, id := range activeIDs {
		keep[id] = struct{}{}
	}
	deleted := 0
	for id, b := range m.bookmarks {
		if b.TopicID != topicID {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(m.bookmarks, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockLocalStore) DeleteBookmarksByIDs(ctx context.Context, ids []int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteBookmarksByIDs")
	if m.DeleteBookmarksByIDsFn != nil {
		return m.DeleteBookmarksByIDsFn(ids)
	}
	deleted := 0
	for _, id := range ids {
		if _, ok := m.bookmarks[id]; ok {
			delete(m.bookmarks, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockLocalStore) GetMaxMessageIDForTopic(ctx context.Context, topicID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var maxID int64
	for _, b := range m.bookmarks {
		if b.TopicID == topicID && b.ID > maxID {
			maxID = b.ID
		}
	}
	return maxID, nil
}

func (m *MockLocalStore) GetBookmark(ctx context.Context, id int64) (*domain.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookmarks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MockLocalStore) ListBookmarks(ctx context.Context, topicID int64, order domain.SortOrder) ([]*domain.Bookmark, error) {
	return m.filter(order, func(b *domain.Bookmark) bool { return b.TopicID == topicID }), nil
}

func (m *MockLocalStore) SearchBookmarks(ctx context.Context, query string, order domain.SortOrder) ([]*domain.Bookmark, error) {
	q := strings.ToLower(query)
	return m.filter(order, func(b *domain.Bookmark) bool {
		return strings.Contains(strings.ToLower(b.Text), q)
	}), nil
}

func (m *MockLocalStore) filter(order domain.SortOrder, keep func(*domain.Bookmark) bool) []*domain.Bookmark {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Bookmark
	for _, b := range m.bookmarks {
		if keep(b) {
			cp := *b
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.Date.Equal(b.Date) {
			if order == domain.SortAsc {
				return a.Date.Before(b.Date)
			}
			return a.Date.After(b.Date)
		}
		if order == domain.SortAsc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
	return result
}

func (m *MockLocalStore) GetCursor(ctx context.Context) (*domain.SyncCursor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetCursorFn != nil {
		return m.GetCursorFn()
	}
	if m.cursor == nil {
		return nil, nil
	}
	cp := *m.cursor
	return &cp, nil
}

func (m *MockLocalStore) SetCursor(ctx context.Context, pts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetCursor")
	if m.SetCursorFn != nil {
		return m.SetCursorFn(pts)
	}
	m.cursor = &domain.SyncCursor{Pts: pts, Date: time.Now()}
	return nil
}

func (m *MockLocalStore) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// Helper methods for testing

// SeedTopic stores a topic without recording a call.
func (m *MockLocalStore) SeedTopic(id int64, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics[id] = &domain.Topic{ID: id, Title: title}
}

// SeedBookmark stores a bookmark without recording a call.
func (m *MockLocalStore) SeedBookmark(b *domain.Bookmark) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.bookmarks[b.ID] = &cp
}

// SeedCursor stores a cursor without recording a call.
func (m *MockLocalStore) SeedCursor(pts int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor = &domain.SyncCursor{Pts: pts, Date: time.Now()}
}

// BookmarkIDs returns the sorted ids stored for a topic.
func (m *MockLocalStore) BookmarkIDs(topicID int64) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for id, b := range m.bookmarks {
		if b.TopicID == topicID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Bookmark returns a stored bookmark or nil.
func (m *MockLocalStore) Bookmark(id int64) *domain.Bookmark {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookmarks[id]
	if !ok {
		return nil
	}
	cp := *b
	return &cp
}

// CursorPts returns the stored pts and whether a cursor exists.
func (m *MockLocalStore) CursorPts() (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cursor == nil {
		return 0, false
	}
	return m.cursor.Pts, true
}

// Calls returns the recorded write calls in order.
func (m *MockLocalStore) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.calls...)
}

// ResetCalls clears the call log.
func (m *MockLocalStore) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
