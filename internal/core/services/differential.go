package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

const (
	defaultDifferencePageSize = 100
	defaultMaxDifferencePages = 1000
)

// errDifferenceStalled is returned when a non-final page does not move the
// cursor forward, which would otherwise loop forever.
var errDifferenceStalled = errors.New("non-final difference page did not advance pts")

// DifferentialSyncEngine applies the remote change stream since the stored
// cursor, one page at a time.
//
// Each page is written with one batch upsert and one delete, and only then
// is the cursor advanced to the page's pts. A crash between the writes and
// the cursor update replays an overlapping page on the next run, which the
// idempotent writes absorb.
type DifferentialSyncEngine struct {
	remote   driven.RemoteSource
	store    driven.LocalStore
	media    *MediaFetcher
	policy   domain.UnresolvedTopicPolicy
	pageSize int
	maxPages int
	logger   *slog.Logger
}

// DifferentialSyncConfig holds dependencies for DifferentialSyncEngine.
type DifferentialSyncConfig struct {
	Remote      driven.RemoteSource
	Store       driven.LocalStore
	Media       *MediaFetcher // optional
	TopicPolicy domain.UnresolvedTopicPolicy
	PageSize    int
	MaxPages    int
	Logger      *slog.Logger
}

// NewDifferentialSyncEngine creates a new differential engine.
func NewDifferentialSyncEngine(cfg DifferentialSyncConfig) *DifferentialSyncEngine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultDifferencePageSize
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxDifferencePages
	}

	return &DifferentialSyncEngine{
		remote:   cfg.Remote,
		store:    cfg.Store,
		media:    cfg.Media,
		policy:   cfg.TopicPolicy,
		pageSize: pageSize,
		maxPages: maxPages,
		logger:   logger,
	}
}

// Run pages through the change stream until a final or empty response.
// It returns the stats, the cursor position reached and one of:
// nil, domain.ErrNoCursor, domain.ErrDifferenceTooLong, a
// *domain.TransportError or a *domain.StorageError.
func (e *DifferentialSyncEngine) Run(ctx context.Context) (domain.SyncStats, int64, error) {
	var stats domain.SyncStats

	cursor, err := e.store.GetCursor(ctx)
	if err != nil {
		return stats, 0, domain.NewStorageError("get cursor", err)
	}
	if cursor == nil {
		return stats, 0, domain.ErrNoCursor
	}
	pts := cursor.Pts

	topics, err := e.store.ListTopics(ctx)
	if err != nil {
		return stats, pts, domain.NewStorageError("list topics", err)
	}
	resolver := NewTopicResolver(e.policy, topics)

	e.logger.Info("starting differential sync", "pts", pts, "topics", len(topics))

	for page := 0; ; page++ {
		if page >= e.maxPages {
			return stats, pts, domain.NewTransportError("get channel difference",
				fmt.Errorf("exceeded %d pages without a final page", e.maxPages))
		}

		diff, err := e.remote.GetChannelDifference(ctx, pts, e.pageSize)
		if err != nil {
			return stats, pts, domain.NewTransportError("get channel difference", err)
		}
		if diff == nil {
			return stats, pts, domain.NewTransportError("get channel difference", errors.New("nil response"))
		}

		switch diff.Kind {
		case domain.DifferenceEmpty:
			if diff.Pts > pts {
				if err := e.store.SetCursor(ctx, diff.Pts); err != nil {
					return stats, pts, domain.NewStorageError("set cursor", err)
				}
				pts = diff.Pts
			}
			e.logger.Info("differential sync complete", "pts", pts, "pages", stats.PagesApplied)
			return stats, pts, nil

		case domain.DifferenceTooLong:
			e.logger.Info("channel difference too long", "pts", pts)
			return stats, pts, domain.ErrDifferenceTooLong

		case domain.DifferencePage:
			if !diff.Final && diff.Pts <= pts {
				return stats, pts, domain.NewTransportError("get channel difference", errDifferenceStalled)
			}
			if err := e.applyPage(ctx, diff, resolver, &stats); err != nil {
				return stats, pts, err
			}
			if diff.Pts >= pts {
				if err := e.store.SetCursor(ctx, diff.Pts); err != nil {
					return stats, pts, domain.NewStorageError("set cursor", err)
				}
				pts = diff.Pts
			} else {
				e.logger.Warn("ignoring backwards pts", "pts", pts, "page_pts", diff.Pts)
			}
			stats.PagesApplied++

			if diff.Final {
				e.logger.Info("differential sync complete", "pts", pts, "pages", stats.PagesApplied)
				return stats, pts, nil
			}

		default:
			return stats, pts, domain.NewTransportError("get channel difference",
				fmt.Errorf("unknown difference kind %q", diff.Kind))
		}
	}
}

func (e *DifferentialSyncEngine) applyPage(ctx context.Context, diff *domain.ChannelDifference, resolver *TopicResolver, stats *domain.SyncStats) error {
	msgs := diff.Messages()
	batch := make([]*domain.Bookmark, 0, len(msgs))
	for _, msg := range msgs {
		if msg.IsService {
			continue
		}
		topicID, ok := resolver.Resolve(msg)
		if !ok {
			stats.MessagesDropped++
			e.logger.Debug("dropping message without resolvable topic", "message_id", msg.ID)
			continue
		}
		batch = append(batch, toBookmark(ctx, e.media, msg, topicID, stats, e.logger))
	}
	batch = dedupeBookmarks(batch)

	if len(batch) > 0 {
		if err := e.store.UpsertBookmarksBatch(ctx, batch); err != nil {
			return domain.NewStorageError("upsert bookmarks", err)
		}
		stats.BookmarksUpserted += len(batch)
	}

	if len(diff.DeletedIDs) > 0 {
		n, err := e.store.DeleteBookmarksByIDs(ctx, diff.DeletedIDs)
		if err != nil {
			return domain.NewStorageError("delete bookmarks", err)
		}
		stats.BookmarksDeleted += n
	}

	e.logger.Debug("applied difference page",
		"page_pts", diff.Pts,
		"upserted", len(batch),
		"deleted", len(diff.DeletedIDs),
		"final", diff.Final,
	)
	return nil
}
