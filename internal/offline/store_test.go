package offline

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxmovies/maxmovies/internal/database"
	"github.com/maxmovies/maxmovies/internal/notification"
	"github.com/maxmovies/maxmovies/internal/testutil"
)

func newTestStore(t *testing.T) (*Store, *notification.Recorder) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	recorder := notification.NewRecorder()
	return NewStore(tdb.Manager, recorder, tdb.Logger), recorder
}

func TestStorePutGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.Put(ctx, Record{
		ID:     "m1001",
		Title:  "Batman Begins",
		Poster: "https://img.example/m1001.jpg",
		Blob:   []byte("media-bytes"),
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, "m1001")
	require.NoError(t, err)
	assert.Equal(t, "Batman Begins", got.Title)
	assert.Equal(t, []byte("media-bytes"), got.Blob)
	assert.Equal(t, int64(len("media-bytes")), got.SizeBytes)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStorePutOverwritesExisting(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, Record{ID: "m1", Title: "First", Blob: []byte("aaaa")}))
	require.NoError(t, store.Put(ctx, Record{ID: "m1", Title: "Second", Blob: []byte("bb")}))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Title)
	assert.Equal(t, int64(2), got.SizeBytes)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStoreGetMissing(t *testing.T) {
	store, recorder := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	// a lookup miss is not a storage fault
	assert.Equal(t, 0, recorder.Count())
}

func TestStoreListOmitsBlobs(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, Record{ID: "m1", Title: "One", Blob: []byte("payload")}))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Blob)
	assert.Equal(t, int64(len("payload")), list[0].SizeBytes)
}

func TestStoreDeleteAndClear(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, Record{ID: "m1", Blob: []byte("a")}))
	require.NoError(t, store.Put(ctx, Record{ID: "m2", Blob: []byte("b")}))

	require.NoError(t, store.Delete(ctx, "m1"))
	// deleting a missing id is a no-op
	require.NoError(t, store.Delete(ctx, "m1"))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.Clear(ctx))
	all, err = store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStoreRecoversFromCorruptDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("this is not a database"), 0o644))

	manager := database.NewManager(dbPath, testutil.NewTestLogger(t))
	t.Cleanup(func() { manager.Close() })
	recorder := notification.NewRecorder()
	store := NewStore(manager, recorder, testutil.NewTestLogger(t))
	ctx := context.Background()

	// the first operation hits the corrupt file, recreates and retries
	require.NoError(t, store.Put(ctx, Record{ID: "m1", Title: "Survivor", Blob: []byte("bytes")}))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Survivor", got.Title)

	// the data loss is surfaced to the user exactly once
	require.Equal(t, 1, recorder.Count())
	assert.Equal(t, notification.LevelError, recorder.Events()[0].Level)
}

func TestStoreEmptyGetAll(t *testing.T) {
	store, _ := newTestStore(t)

	all, err := store.GetAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}
