package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.LocalStore = (*LocalStore)(nil)

// LocalStore implements driven.LocalStore on SQLite.
// Id sets are bound as one JSON array and expanded with json_each, which
// keeps large prune sets clear of the bound-parameter limit.
type LocalStore struct {
	db *DB
}

// NewLocalStore creates a LocalStore over db
func NewLocalStore(db *DB) *LocalStore {
	return &LocalStore{db: db}
}

// Ping checks the database
func (s *LocalStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// UpsertTopic creates or updates a topic and stamps last_synced
func (s *LocalStore) UpsertTopic(ctx context.Context, id int64, title string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO topics (id, title, last_synced) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			last_synced = excluded.last_synced
	`, id, title, time.Now().UTC())
	return err
}

// ListTopics returns all topics ordered by id
func (s *LocalStore) ListTopics(ctx context.Context) ([]*domain.Topic, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, last_synced FROM topics ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := []*domain.Topic{}
	for rows.Next() {
		var t domain.Topic
		if err := rows.Scan(&t.ID, &t.Title, &t.LastSynced); err != nil {
			return nil, err
		}
		topics = append(topics, &t)
	}
	return topics, rows.Err()
}

// GetTopic retrieves a topic by id
func (s *LocalStore) GetTopic(ctx context.Context, id int64) (*domain.Topic, error) {
	var t domain.Topic
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, last_synced FROM topics WHERE id = ?`, id,
	).Scan(&t.ID, &t.Title, &t.LastSynced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const bookmarkColumns = `id, topic_id, text, media_path, content_type, date`

// UpsertBookmarksBatch writes all bookmarks in one transaction
func (s *LocalStore) UpsertBookmarksBatch(ctx context.Context, items []*domain.Bookmark) error {
	if len(items) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO bookmarks (`+bookmarkColumns+`) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				topic_id = excluded.topic_id,
				text = excluded.text,
				media_path = excluded.media_path,
				content_type = excluded.content_type,
				date = excluded.date
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range items {
			var mediaPath sql.NullString
			if b.MediaPath != nil {
				mediaPath = sql.NullString{String: *b.MediaPath, Valid: true}
			}
			_, err = stmt.ExecContext(ctx,
				b.ID,
				b.TopicID,
				b.Text,
				mediaPath,
				string(b.ContentType),
				b.Date.UTC(),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// PruneBookmarks deletes a topic's bookmarks absent from activeIDs
func (s *LocalStore) PruneBookmarks(ctx context.Context, topicID int64, activeIDs []int64) (int, error) {
	if len(activeIDs) == 0 {
		return s.exec(ctx, `DELETE FROM bookmarks WHERE topic_id = ?`, topicID)
	}
	ids, err := idSet(activeIDs)
	if err != nil {
		return 0, err
	}
	return s.exec(ctx,
		`DELETE FROM bookmarks WHERE topic_id = ? AND id NOT IN (SELECT value FROM json_each(?))`,
		topicID, ids,
	)
}

// DeleteBookmarksByIDs deletes bookmarks by id in any topic
func (s *LocalStore) DeleteBookmarksByIDs(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	set, err := idSet(ids)
	if err != nil {
		return 0, err
	}
	return s.exec(ctx, `DELETE FROM bookmarks WHERE id IN (SELECT value FROM json_each(?))`, set)
}

func idSet(ids []int64) (string, error) {
	b, err := json.Marshal(ids)
	return string(b), err
}

func (s *LocalStore) exec(ctx context.Context, query string, args ...any) (int, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// GetMaxMessageIDForTopic returns the highest bookmark id of a topic, 0 if none
func (s *LocalStore) GetMaxMessageIDForTopic(ctx context.Context, topicID int64) (int64, error) {
	var maxID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM bookmarks WHERE topic_id = ?`, topicID,
	).Scan(&maxID)
	return maxID, err
}

// GetBookmark retrieves a bookmark by id
func (s *LocalStore) GetBookmark(ctx context.Context, id int64) (*domain.Bookmark, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = ?`, id)
	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return b, err
}

// ListBookmarks returns a topic's bookmarks ordered by date
func (s *LocalStore) ListBookmarks(ctx context.Context, topicID int64, order domain.SortOrder) ([]*domain.Bookmark, error) {
	return s.query(ctx, `SELECT `+bookmarkColumns+` FROM bookmarks WHERE topic_id = ? `+orderBy(order), topicID)
}

// SearchBookmarks matches text case-insensitively across all topics.
// SQLite's LIKE folds ASCII case only.
func (s *LocalStore) SearchBookmarks(ctx context.Context, query string, order domain.SortOrder) ([]*domain.Bookmark, error) {
	return s.query(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE text LIKE ? ESCAPE '\' `+orderBy(order),
		"%"+escapeLike(query)+"%",
	)
}

func (s *LocalStore) query(ctx context.Context, query string, args ...any) ([]*domain.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookmarks := []*domain.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row scanner) (*domain.Bookmark, error) {
	var b domain.Bookmark
	var mediaPath sql.NullString
	var contentType string
	if err := row.Scan(&b.ID, &b.TopicID, &b.Text, &mediaPath, &contentType, &b.Date); err != nil {
		return nil, err
	}
	if mediaPath.Valid {
		b.MediaPath = &mediaPath.String
	}
	b.ContentType = domain.ContentType(contentType)
	return &b, nil
}

func orderBy(order domain.SortOrder) string {
	dir := order.SQL()
	return `ORDER BY date ` + dir + `, id ` + dir
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// GetCursor returns the singleton cursor, or nil when none was stored
func (s *LocalStore) GetCursor(ctx context.Context) (*domain.SyncCursor, error) {
	var c domain.SyncCursor
	err := s.db.QueryRowContext(ctx, `SELECT pts, date FROM sync_cursor WHERE id = 1`).Scan(&c.Pts, &c.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SetCursor overwrites the singleton cursor
func (s *LocalStore) SetCursor(ctx context.Context, pts int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_cursor (id, pts, date) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			pts = excluded.pts,
			date = excluded.date
	`, pts, time.Now().UTC())
	return err
}
