package download

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxmovies/maxmovies/internal/config"
	"github.com/maxmovies/maxmovies/internal/notification"
	"github.com/maxmovies/maxmovies/internal/offline"
	"github.com/maxmovies/maxmovies/internal/progress"
	"github.com/maxmovies/maxmovies/internal/testutil"
)

type hubRecorder struct {
	mu     sync.Mutex
	events []string
}

func (h *hubRecorder) Broadcast(msgType string, payload interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, msgType)
	return nil
}

func (h *hubRecorder) count(msgType string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e == msgType {
			n++
		}
	}
	return n
}

func newTestPipeline(t *testing.T, chunkSize int) (*Pipeline, *offline.Store, *hubRecorder) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	store := offline.NewStore(tdb.Manager, notification.Nop(), tdb.Logger)
	hub := &hubRecorder{}
	tracker := progress.NewTracker(hub, tdb.Logger)
	cfg := config.DownloadConfig{ChunkSize: chunkSize}
	return NewPipeline(cfg, store, tracker, notification.Nop(), tdb.Logger), store, hub
}

func TestDownloadChunkedCommit(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
		w.Write(payload)
	}))
	defer server.Close()

	pipeline, store, hub := newTestPipeline(t, 100)

	err := pipeline.Download(context.Background(), Request{
		ID:    "m1",
		Title: "Batman Begins",
		URL:   server.URL,
	})
	require.NoError(t, err)

	got, err := store.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, payload, got.Blob)
	assert.Equal(t, int64(1000), got.SizeBytes)

	// 1000 bytes in 100-byte chunks means at least ten progress updates
	assert.GreaterOrEqual(t, hub.count(string(progress.EventTypeUpdate)), 10)
	assert.Equal(t, 1, hub.count(string(progress.EventTypeCompleted)))
}

func TestDownloadFailureCommitsNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// promise more than is delivered, then cut the connection
		w.Header().Set("Content-Length", "5000")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("partial"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, _ := hj.Hijack()
			conn.Close()
		}
	}))
	defer server.Close()

	pipeline, store, hub := newTestPipeline(t, 64)

	err := pipeline.Download(context.Background(), Request{ID: "m1", Title: "Broken", URL: server.URL})
	require.Error(t, err)

	_, err = store.Get(context.Background(), "m1")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.Equal(t, 1, hub.count(string(progress.EventTypeError)))
}

func TestDownloadHTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	pipeline, store, _ := newTestPipeline(t, 64)

	err := pipeline.Download(context.Background(), Request{ID: "m1", URL: server.URL})
	require.Error(t, err)

	_, err = store.Get(context.Background(), "m1")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestDownloadDuplicateRejected(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.Write([]byte("done"))
	}))
	defer server.Close()

	pipeline, _, _ := newTestPipeline(t, 64)

	done := make(chan error, 1)
	go func() {
		done <- pipeline.Download(context.Background(), Request{ID: "m1", Title: "Slow", URL: server.URL})
	}()

	<-started
	err := pipeline.Download(context.Background(), Request{ID: "m1", Title: "Slow", URL: server.URL})
	assert.True(t, errors.Is(err, ErrDownloadInFlight))

	close(release)
	require.NoError(t, <-done)
}

func TestDownloadOverwritesExisting(t *testing.T) {
	payload := []byte("second version")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	pipeline, store, _ := newTestPipeline(t, 64)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, offline.Record{ID: "m1", Title: "First", Blob: []byte("first version")}))

	require.NoError(t, pipeline.Download(ctx, Request{ID: "m1", Title: "Second", URL: server.URL}))

	got, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Title)
	assert.Equal(t, payload, got.Blob)
}

func TestDownloadIndeterminateProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// chunked transfer encoding, no Content-Length
		if f, ok := w.(http.Flusher); ok {
			w.Write([]byte("part one "))
			f.Flush()
			w.Write([]byte("part two"))
			f.Flush()
		}
	}))
	defer server.Close()

	pipeline, store, _ := newTestPipeline(t, 4)

	require.NoError(t, pipeline.Download(context.Background(), Request{ID: "m1", Title: "Unknown size", URL: server.URL}))

	got, err := store.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, []byte("part one part two"), got.Blob)
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, progress.Indeterminate, percentOf(500, 0))
	assert.Equal(t, progress.Indeterminate, percentOf(500, -1))
	assert.Equal(t, 50, percentOf(500, 1000))
	assert.Equal(t, 100, percentOf(2000, 1000))
}
