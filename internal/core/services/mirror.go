package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
)

// toBookmark converts a content message into a bookmark of topicID.
// Media is resolved through fetcher when one is configured; a failed
// transfer leaves the bookmark without media and is counted in stats.
func toBookmark(ctx context.Context, fetcher *MediaFetcher, msg *domain.RemoteMessage, topicID int64, stats *domain.SyncStats, logger *slog.Logger) *domain.Bookmark {
	b := &domain.Bookmark{
		ID:          msg.ID,
		TopicID:     topicID,
		Text:        msg.Text,
		ContentType: msg.ContentType(),
		Date:        msg.Date,
	}

	kind, ok := domain.MediaKindFor(b.ContentType)
	if !ok || fetcher == nil {
		return b
	}

	path, err := fetcher.Fetch(ctx, msg.ID, kind)
	if err != nil {
		var mfe *domain.MediaFetchError
		if errors.As(err, &mfe) {
			stats.MediaFailures++
		}
		logger.Warn("media unavailable, storing bookmark without media",
			"message_id", msg.ID,
			"kind", kind,
			"error", err,
		)
		return b
	}
	if path != "" {
		b.MediaPath = &path
	}
	return b
}

// dedupeBookmarks keeps the last occurrence of each id, preserving first
// positions.
func dedupeBookmarks(items []*domain.Bookmark) []*domain.Bookmark {
	index := make(map[int64]int, len(items))
	out := make([]*domain.Bookmark, 0, len(items))
	for _, b := range items {
		if i, ok := index[b.ID]; ok {
			out[i] = b
			continue
		}
		index[b.ID] = len(out)
		out = append(out, b)
	}
	return out
}
