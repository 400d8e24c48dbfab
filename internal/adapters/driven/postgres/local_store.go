package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.LocalStore    = (*LocalStore)(nil)
	_ driven.TopicStore    = (*TopicStore)(nil)
	_ driven.BookmarkStore = (*BookmarkStore)(nil)
	_ driven.CursorStore   = (*CursorStore)(nil)
)

// LocalStore implements driven.LocalStore using PostgreSQL
type LocalStore struct {
	*TopicStore
	*BookmarkStore
	*CursorStore
	db *DB
}

// NewLocalStore creates a LocalStore over db
func NewLocalStore(db *DB) *LocalStore {
	return &LocalStore{
		TopicStore:    NewTopicStore(db),
		BookmarkStore: NewBookmarkStore(db),
		CursorStore:   NewCursorStore(db),
		db:            db,
	}
}

// Ping checks the database
func (s *LocalStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// TopicStore implements driven.TopicStore using PostgreSQL
type TopicStore struct {
	db *DB
}

// NewTopicStore creates a new TopicStore
func NewTopicStore(db *DB) *TopicStore {
	return &TopicStore{db: db}
}

// UpsertTopic creates or updates a topic and stamps last_synced
func (s *TopicStore) UpsertTopic(ctx context.Context, id int64, title string) error {
	query := `
		INSERT INTO topics (id, title, last_synced)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			last_synced = EXCLUDED.last_synced
	`
	_, err := s.db.ExecContext(ctx, query, id, title)
	return err
}

// ListTopics returns all topics ordered by id
func (s *TopicStore) ListTopics(ctx context.Context) ([]*domain.Topic, error) {
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
func (s *TopicStore) GetTopic(ctx context.Context, id int64) (*domain.Topic, error) {
	var t domain.Topic
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, last_synced FROM topics WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.LastSynced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// BookmarkStore implements driven.BookmarkStore using PostgreSQL
type BookmarkStore struct {
	db *DB
}

// NewBookmarkStore creates a new BookmarkStore
func NewBookmarkStore(db *DB) *BookmarkStore {
	return &BookmarkStore{db: db}
}

const bookmarkColumns = `id, topic_id, text, media_path, content_type, date`

// UpsertBookmarksBatch writes all bookmarks in one transaction
func (s *BookmarkStore) UpsertBookmarksBatch(ctx context.Context, items []*domain.Bookmark) error {
	if len(items) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO bookmarks (` + bookmarkColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				topic_id = EXCLUDED.topic_id,
				text = EXCLUDED.text,
				media_path = EXCLUDED.media_path,
				content_type = EXCLUDED.content_type,
				date = EXCLUDED.date
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range items {
			_, err = stmt.ExecContext(ctx,
				b.ID,
				b.TopicID,
				b.Text,
				NullString(b.MediaPath),
				string(b.ContentType),
				b.Date,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// PruneBookmarks deletes a topic's bookmarks absent from activeIDs
func (s *BookmarkStore) PruneBookmarks(ctx context.Context, topicID int64, activeIDs []int64) (int, error) {
	if len(activeIDs) == 0 {
		return s.exec(ctx, `DELETE FROM bookmarks WHERE topic_id = $1`, topicID)
	}
	return s.exec(ctx,
		`DELETE FROM bookmarks WHERE topic_id = $1 AND id <> ALL($2)`,
		topicID, pq.Array(activeIDs),
	)
}

// DeleteBookmarksByIDs deletes bookmarks by id in any topic
func (s *BookmarkStore) DeleteBookmarksByIDs(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.exec(ctx, `DELETE FROM bookmarks WHERE id = ANY($1)`, pq.Array(ids))
}

func (s *BookmarkStore) exec(ctx context.Context, query string, args ...interface{}) (int, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// GetMaxMessageIDForTopic returns the highest bookmark id of a topic, 0 if none
func (s *BookmarkStore) GetMaxMessageIDForTopic(ctx context.Context, topicID int64) (int64, error) {
	var maxID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM bookmarks WHERE topic_id = $1`, topicID,
	).Scan(&maxID)
	return maxID, err
}

// GetBookmark retrieves a bookmark by id
func (s *BookmarkStore) GetBookmark(ctx context.Context, id int64) (*domain.Bookmark, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = $1`, id)
	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return b, err
}

// ListBookmarks returns a topic's bookmarks ordered by date
func (s *BookmarkStore) ListBookmarks(ctx context.Context, topicID int64, order domain.SortOrder) ([]*domain.Bookmark, error) {
	query := `SELECT ` + bookmarkColumns + ` FROM bookmarks WHERE topic_id = $1 ` + orderBy(order)
	return s.query(ctx, query, topicID)
}

// SearchBookmarks matches text case-insensitively across all topics
func (s *BookmarkStore) SearchBookmarks(ctx context.Context, query string, order domain.SortOrder) ([]*domain.Bookmark, error) {
	q := `SELECT ` + bookmarkColumns + ` FROM bookmarks WHERE text ILIKE $1 ESCAPE '\' ` + orderBy(order)
	return s.query(ctx, q, "%"+escapeLike(query)+"%")
}

func (s *BookmarkStore) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Bookmark, error) {
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
	Scan(dest ...interface{}) error
}

func scanBookmark(row scanner) (*domain.Bookmark, error) {
	var b domain.Bookmark
	var mediaPath sql.NullString
	var contentType string
	if err := row.Scan(&b.ID, &b.TopicID, &b.Text, &mediaPath, &contentType, &b.Date); err != nil {
		return nil, err
	}
	b.MediaPath = StringPtr(mediaPath)
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

// CursorStore implements driven.CursorStore using PostgreSQL
type CursorStore struct {
	db *DB
}

// NewCursorStore creates a new CursorStore
func NewCursorStore(db *DB) *CursorStore {
	return &CursorStore{db: db}
}

// GetCursor returns the singleton cursor, or nil when none was stored
func (s *CursorStore) GetCursor(ctx context.Context) (*domain.SyncCursor, error) {
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
func (s *CursorStore) SetCursor(ctx context.Context, pts int64) error {
	query := `
		INSERT INTO sync_cursor (id, pts, date)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET
			pts = EXCLUDED.pts,
			date = EXCLUDED.date
	`
	_, err := s.db.ExecContext(ctx, query, pts)
	return err
}
