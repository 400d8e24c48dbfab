package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SyncRunStore = (*SyncRunStore)(nil)

// SyncRunStore implements driven.SyncRunStore using PostgreSQL
type SyncRunStore struct {
	db *DB
}

// NewSyncRunStore creates a new SyncRunStore
func NewSyncRunStore(db *DB) *SyncRunStore {
	return &SyncRunStore{db: db}
}

const runColumns = `id, status, strategy, stats, topic_failures, error, cursor, started_at, completed_at`

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

	query := `
		INSERT INTO sync_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			strategy = EXCLUDED.strategy,
			stats = EXCLUDED.stats,
			topic_failures = EXCLUDED.topic_failures,
			error = EXCLUDED.error,
			cursor = EXCLUDED.cursor,
			completed_at = EXCLUDED.completed_at
	`
	_, err = s.db.ExecContext(ctx, query,
		run.ID,
		string(run.Status),
		string(run.Strategy),
		statsJSON,
		failuresJSON,
		run.Error,
		cursor,
		run.StartedAt,
		NullTime(run.CompletedAt),
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
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM sync_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*domain.SyncRun{}
	for rows.Next() {
		var run domain.SyncRun
		var status, strategy string
		var statsJSON, failuresJSON []byte
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
		run.CompletedAt = TimePtr(completedAt)
		if cursor.Valid {
			run.Cursor = &cursor.Int64
		}
		if len(statsJSON) > 0 {
			if err := json.Unmarshal(statsJSON, &run.Stats); err != nil {
				return nil, err
			}
		}
		if len(failuresJSON) > 0 {
			if err := json.Unmarshal(failuresJSON, &run.TopicFailures); err != nil {
				return nil, err
			}
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

