package services

import (
	"context"
	"strings"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driving"
)

// Ensure bookmarkService implements BookmarkService
var _ driving.BookmarkService = (*bookmarkService)(nil)

// bookmarkService implements the BookmarkService interface
type bookmarkService struct {
	store driven.LocalStore
}

// NewBookmarkService creates a new BookmarkService
func NewBookmarkService(store driven.LocalStore) driving.BookmarkService {
	return &bookmarkService{store: store}
}

// ListTopics returns all mirrored topics
func (s *bookmarkService) ListTopics(ctx context.Context) ([]*domain.Topic, error) {
	return s.store.ListTopics(ctx)
}

// GetTopicBySlug returns the first topic, in listing order, whose title
// slugifies to slug.
func (s *bookmarkService) GetTopicBySlug(ctx context.Context, slug string) (*domain.Topic, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, domain.ErrInvalidInput
	}
	topics, err := s.store.ListTopics(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range topics {
		if domain.Slugify(t.Title) == slug {
			return t, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListBookmarks returns a topic's bookmarks
func (s *bookmarkService) ListBookmarks(ctx context.Context, topicID int64, order domain.SortOrder) ([]*domain.Bookmark, error) {
	if _, err := s.store.GetTopic(ctx, topicID); err != nil {
		return nil, err
	}
	return s.store.ListBookmarks(ctx, topicID, order)
}

// SearchBookmarks finds bookmarks by text
func (s *bookmarkService) SearchBookmarks(ctx context.Context, query string, order domain.SortOrder) ([]*domain.Bookmark, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.store.SearchBookmarks(ctx, query, order)
}

// Ping checks the store
func (s *bookmarkService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
