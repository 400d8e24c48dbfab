package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
)

// openTestDB connects to TGB_TEST_POSTGRES_URL or skips.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TGB_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TGB_TEST_POSTGRES_URL not set")
	}

	ctx := context.Background()
	db, err := Connect(ctx, DefaultConfig(url))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(ctx, `TRUNCATE topics, bookmarks, sync_cursor, sync_runs`)
	require.NoError(t, err)
	return db
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "ORDER BY date ASC, id ASC", orderBy(domain.SortAsc))
	assert.Equal(t, "ORDER BY date DESC, id DESC", orderBy(domain.SortDesc))
}

func TestHashLockName(t *testing.T) {
	assert.Equal(t, hashLockName("sync-run"), hashLockName("sync-run"))
	assert.NotEqual(t, hashLockName("sync-run"), hashLockName("other"))
}

func TestLocalStore_Postgres(t *testing.T) {
	db := openTestDB(t)
	store := NewLocalStore(db)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertTopic(ctx, 1, "General"))
	require.NoError(t, store.UpsertTopic(ctx, 1, "General (renamed)"))
	topic, err := store.GetTopic(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "General (renamed)", topic.Title)

	items := []*domain.Bookmark{
		{ID: 5, TopicID: 1, Text: "five", ContentType: domain.ContentTypeText, Date: base},
		{ID: 7, TopicID: 1, Text: "Seven", ContentType: domain.ContentTypeText, Date: base.Add(time.Hour)},
		{ID: 9, TopicID: 1, Text: "nine", ContentType: domain.ContentTypeText, Date: base.Add(2 * time.Hour)},
	}
	require.NoError(t, store.UpsertBookmarksBatch(ctx, items))
	require.NoError(t, store.UpsertBookmarksBatch(ctx, items))

	n, err := store.PruneBookmarks(ctx, 1, []int64{5, 9})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := store.ListBookmarks(ctx, 1, domain.SortAsc)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(5), list[0].ID)

	maxID, err := store.GetMaxMessageIDForTopic(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(9), maxID)

	found, err := store.SearchBookmarks(ctx, "NINE", domain.SortDesc)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	n, err = store.DeleteBookmarksByIDs(ctx, []int64{9, 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cursor, err := store.GetCursor(ctx)
	require.NoError(t, err)
	assert.Nil(t, cursor)
	require.NoError(t, store.SetCursor(ctx, 42))
	cursor, err = store.GetCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cursor.Pts)
}

func TestAdvisoryLock_Postgres(t *testing.T) {
	db := openTestDB(t)
	a := NewAdvisoryLock(db)
	b := NewAdvisoryLock(db)
	ctx := context.Background()

	ok, err := a.Acquire(ctx, "sync-run", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx, "sync-run", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Release(ctx, "sync-run"))
	ok, err = b.Acquire(ctx, "sync-run", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Release(ctx, "sync-run"))
}
