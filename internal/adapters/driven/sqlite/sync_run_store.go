package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SyncRunStore = (*SyncRunStore)(nil)

// SyncRunStore implements driven.SyncRunStore on SQLite
type SyncRunStore struct {
	db *DB
}

// NewSyncRunStore creates a new SyncRunStore
func NewSyncRunStore(db *DB) *SyncRunStore {
	return &SyncRunStore{db: db}
}

// SaveRun creates or updates a run
func (s *SyncRunStore) SaveRun(ctx context.Context, run *domain.SyncRun) error {
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return err
	}
	failures := run.TopicFailures
	if failures == nil {
		failures = []domain.TopicFailure{}
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return err
	}

	var cursor sql.NullInt64
	if run.Cursor != nil {
		cursor = sql.NullInt64{Int64: *run.Cursor, Valid: true}
	}
	var completedAt sql.NullTime
	if run.CompletedAt != nil {
		completedAt = sql.NullTime{Time: run.CompletedAt.UTC(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, status, strategy, stats, topic_failures, error, cursor, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			strategy = excluded.strategy,
			stats = excluded.stats,
			topic_failures = excluded.topic_failures,
			error = excluded.error,
			cursor = excluded.cursor,
			completed_at = excluded.completed_at
	`,
		run.ID,
		string(run.Status),
		string(run.Strategy),
		string(statsJSON),
		string(failuresJSON),
		run.Error,
		cursor,
		run.StartedAt.UTC(),
		completedAt,
	)
	return err
}

// LatestRun returns the most recently started run
func (s *SyncRunStore) LatestRun(ctx context.Context) (*domain.SyncRun, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return runs[0], nil
}

// ListRuns returns up to limit runs, newest first
func (s *SyncRunStore) ListRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, strategy, stats, topic_failures, error, cursor, started_at, completed_at
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*domain.SyncRun{}
	for rows.Next() {
		var run domain.SyncRun
		var status, strategy, statsJSON, failuresJSON string
		var cursor sql.NullInt64
		var completedAt sql.NullTime

		err := rows.Scan(
			&run.ID,
			&status,
			&strategy,
			&statsJSON,
			&failuresJSON,
			&run.Error,
			&cursor,
			&run.StartedAt,
			&completedAt,
		)
		if err != nil {
			return nil, err
		}

		run.Status = domain.RunStatus(status)
		run.Strategy = domain.SyncStrategy(strategy)
		if cursor.Valid {
			run.Cursor = &cursor.Int64
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		if err := json.Unmarshal([]byte(statsJSON), &run.Stats); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(failuresJSON), &run.TopicFailures); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
