package driving

import (
	"context"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
)

// BookmarkService is the read-only view of the mirror used by the
// browsing surface.
type BookmarkService interface {
	// ListTopics returns all mirrored topics
	ListTopics(ctx context.Context) ([]*domain.Topic, error)

	// GetTopicBySlug resolves a topic from its slugified title
	GetTopicBySlug(ctx context.Context, slug string) (*domain.Topic, error)

	// ListBookmarks returns a topic's bookmarks in the given order
	ListBookmarks(ctx context.Context, topicID int64, order domain.SortOrder) ([]*domain.Bookmark, error)

	// SearchBookmarks finds bookmarks whose text contains query
	SearchBookmarks(ctx context.Context, query string, order domain.SortOrder) ([]*domain.Bookmark, error)

	// Ping checks the underlying store
	Ping(ctx context.Context) error
}
