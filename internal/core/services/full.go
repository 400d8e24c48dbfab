package services

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

const defaultTopicMessageCap = 500

// FullSyncEngine re-derives one topic from a complete enumeration of its
// remote history.
//
// Nothing is written until the iteration has finished. A failed iteration
// commits nothing and prunes nothing, so the topic's mirror is unchanged.
type FullSyncEngine struct {
	remote driven.RemoteSource
	store  driven.LocalStore
	media  *MediaFetcher
	mode   domain.FullSyncMode
	limit  int
	logger *slog.Logger
}

// FullSyncConfig holds dependencies for FullSyncEngine.
type FullSyncConfig struct {
	Remote driven.RemoteSource
	Store  driven.LocalStore
	Media  *MediaFetcher // optional
	Mode   domain.FullSyncMode

	// MessageCap bounds how many records are read per topic (default 500).
	// A reconcile pass that reaches the cap before the end of the topic
	// skips pruning, since older messages were never seen.
	MessageCap int

	Logger *slog.Logger
}

// NewFullSyncEngine creates a new full sync engine.
func NewFullSyncEngine(cfg FullSyncConfig) *FullSyncEngine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := cfg.Mode
	if mode == "" {
		mode = domain.FullSyncReconcile
	}
	limit := cfg.MessageCap
	if limit <= 0 {
		limit = defaultTopicMessageCap
	}

	return &FullSyncEngine{
		remote: cfg.Remote,
		store:  cfg.Store,
		media:  cfg.Media,
		mode:   mode,
		limit:  limit,
		logger: logger,
	}
}

// SyncTopic mirrors one topic. In reconcile mode it upserts every content
// message seen and prunes the rest; in append mode it only scans messages
// newer than the local maximum and never prunes.
func (e *FullSyncEngine) SyncTopic(ctx context.Context, topicID int64) (domain.SyncStats, error) {
	var stats domain.SyncStats

	var minID int64
	if e.mode == domain.FullSyncAppend {
		maxID, err := e.store.GetMaxMessageIDForTopic(ctx, topicID)
		if err != nil {
			return stats, domain.NewStorageError("get max message id", err)
		}
		minID = maxID
	}

	iter, err := e.remote.IterateTopicMessages(ctx, topicID, minID, e.limit)
	if err != nil {
		return stats, domain.NewTransportError("iterate topic messages", err)
	}
	defer func() { _ = iter.Close() }()

	var (
		batch []*domain.Bookmark
		seen  []int64
		read  int
		done  bool
	)
	for read < e.limit {
		msg, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			done = true
			break
		}
		if err != nil {
			e.logger.Warn("topic iteration failed, leaving mirror untouched",
				"topic_id", topicID,
				"messages_read", read,
				"error", err,
			)
			return domain.SyncStats{}, domain.NewTransportError("iterate topic messages", err)
		}
		read++
		if msg.IsService {
			continue
		}
		seen = append(seen, msg.ID)
		batch = append(batch, toBookmark(ctx, e.media, msg, topicID, &stats, e.logger))
	}
	batch = dedupeBookmarks(batch)

	if len(batch) > 0 {
		if err := e.store.UpsertBookmarksBatch(ctx, batch); err != nil {
			return stats, domain.NewStorageError("upsert bookmarks", err)
		}
		stats.BookmarksUpserted = len(batch)
	}

	switch {
	case e.mode != domain.FullSyncReconcile:
	case !done:
		e.logger.Warn("message cap reached, skipping prune",
			"topic_id", topicID,
			"cap", e.limit,
		)
	default:
		n, err := e.store.PruneBookmarks(ctx, topicID, seen)
		if err != nil {
			return stats, domain.NewStorageError("prune bookmarks", err)
		}
		stats.BookmarksDeleted = n
	}

	stats.TopicsSynced = 1
	e.logger.Info("topic synced",
		"topic_id", topicID,
		"mode", e.mode,
		"upserted", stats.BookmarksUpserted,
		"pruned", stats.BookmarksDeleted,
	)
	return stats, nil
}
