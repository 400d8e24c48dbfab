package driven

import (
	"context"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
)

// TopicStore persists the mirrored topic list
type TopicStore interface {
	// UpsertTopic creates or overwrites title and last_synced
	UpsertTopic(ctx context.Context, id int64, title string) error

	// ListTopics returns all topics ordered by id
	ListTopics(ctx context.Context) ([]*domain.Topic, error)

	// GetTopic returns a topic or domain.ErrNotFound
	GetTopic(ctx context.Context, id int64) (*domain.Topic, error)
}

// BookmarkStore persists mirrored messages.
// All writes are idempotent: repeating a call with identical arguments
// leaves the same state.
type BookmarkStore interface {
	// UpsertBookmarksBatch applies all items keyed by id as one atomic unit.
	// Empty input is a no-op.
	UpsertBookmarksBatch(ctx context.Context, items []*domain.Bookmark) error

	// PruneBookmarks deletes every bookmark of topicID whose id is not in
	// activeIDs. An empty activeIDs deletes all bookmarks of the topic.
	PruneBookmarks(ctx context.Context, topicID int64, activeIDs []int64) (int, error)

	// DeleteBookmarksByIDs deletes matching rows regardless of topic
	DeleteBookmarksByIDs(ctx context.Context, ids []int64) (int, error)

	// GetMaxMessageIDForTopic returns 0 when the topic has no bookmarks
	GetMaxMessageIDForTopic(ctx context.Context, topicID int64) (int64, error)

	// GetBookmark returns a bookmark or domain.ErrNotFound
	GetBookmark(ctx context.Context, id int64) (*domain.Bookmark, error)

	// ListBookmarks returns a topic's bookmarks ordered by date
	ListBookmarks(ctx context.Context, topicID int64, order domain.SortOrder) ([]*domain.Bookmark, error)

	// SearchBookmarks matches text case-insensitively across all topics
	SearchBookmarks(ctx context.Context, query string, order domain.SortOrder) ([]*domain.Bookmark, error)
}

// CursorStore persists the singleton differential sync cursor
type CursorStore interface {
	// GetCursor returns nil when no cursor has ever been stored
	GetCursor(ctx context.Context) (*domain.SyncCursor, error)

	// SetCursor overwrites unconditionally; callers enforce monotonicity
	SetCursor(ctx context.Context, pts int64) error
}

// LocalStore is the local mirror shared by the sync engines and the
// browsing surface.
type LocalStore interface {
	TopicStore
	BookmarkStore
	CursorStore

	// Ping checks the store is reachable
	Ping(ctx context.Context) error
}

// SyncRunStore keeps the history of orchestrator runs
type SyncRunStore interface {
	// SaveRun creates or updates a run by id
	SaveRun(ctx context.Context, run *domain.SyncRun) error

	// LatestRun returns the most recently started run or domain.ErrNotFound
	LatestRun(ctx context.Context) (*domain.SyncRun, error)

	// ListRuns returns up to limit runs, newest first
	ListRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error)
}
