// Package download fetches media files in chunks and commits completed
// blobs to the offline store. A failed transfer commits nothing.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxmovies/maxmovies/internal/config"
	"github.com/maxmovies/maxmovies/internal/notification"
	"github.com/maxmovies/maxmovies/internal/offline"
	"github.com/maxmovies/maxmovies/internal/progress"
)

// ErrDownloadInFlight is returned when a download for the same media id is
// already running.
var ErrDownloadInFlight = errors.New("download already in progress")

// Request describes one media file to download.
type Request struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Poster string `json:"poster"`
	URL    string `json:"url"`
}

// Pipeline streams media files chunk by chunk, reporting progress after
// each chunk, and stores the assembled blob only when the transfer
// finished cleanly.
type Pipeline struct {
	store      *offline.Store
	tracker    *progress.Tracker
	notifier   notification.Notifier
	httpClient *http.Client
	chunkSize  int

	mu       sync.Mutex
	inflight map[string]struct{}

	logger zerolog.Logger
}

// NewPipeline creates a download pipeline. A zero download timeout in cfg
// means transfers are bounded only by the caller's context.
func NewPipeline(cfg config.DownloadConfig, store *offline.Store, tracker *progress.Tracker, notifier notification.Notifier, logger zerolog.Logger) *Pipeline {
	if notifier == nil {
		notifier = notification.Nop()
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	return &Pipeline{
		store:      store,
		tracker:    tracker,
		notifier:   notifier,
		httpClient: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		chunkSize:  chunkSize,
		inflight:   make(map[string]struct{}),
		logger:     logger.With().Str("component", "download").Logger(),
	}
}

// Download runs the full pipeline for one request: fetch, assemble, commit.
// A second request for an id already in flight is rejected with
// ErrDownloadInFlight. A completed download for an existing id overwrites
// the stored record.
func (p *Pipeline) Download(ctx context.Context, req Request) error {
	if err := p.claim(req.ID); err != nil {
		return err
	}
	defer p.release(req.ID)

	return p.run(ctx, req)
}

// StartAsync claims the id and runs the pipeline in the background. The
// in-flight check happens synchronously so a duplicate request is rejected
// before this returns.
func (p *Pipeline) StartAsync(req Request) error {
	if err := p.claim(req.ID); err != nil {
		return err
	}
	go func() {
		defer p.release(req.ID)
		if err := p.run(context.Background(), req); err != nil {
			p.logger.Error().Err(err).Str("id", req.ID).Msg("background download failed")
		}
	}()
	return nil
}

func (p *Pipeline) run(ctx context.Context, req Request) error {
	p.tracker.Start(req.ID, progress.ActivityTypeDownload, req.Title)
	p.logger.Info().Str("id", req.ID).Str("title", req.Title).Msg("download started")

	blob, err := p.fetch(ctx, req)
	if err != nil {
		p.tracker.Fail(req.ID, err.Error())
		p.notifier.Notify(fmt.Sprintf("Download failed: %s", req.Title), notification.LevelError)
		p.logger.Error().Err(err).Str("id", req.ID).Msg("download failed")
		return err
	}

	record := offline.Record{
		ID:     req.ID,
		Title:  req.Title,
		Poster: req.Poster,
		Blob:   blob,
	}
	if err := p.store.Put(ctx, record); err != nil {
		p.tracker.Fail(req.ID, "failed to store download")
		p.logger.Error().Err(err).Str("id", req.ID).Msg("failed to store download")
		return err
	}

	p.tracker.Complete(req.ID, "Download complete")
	p.notifier.Notify(fmt.Sprintf("Downloaded: %s", req.Title), notification.LevelSuccess)
	p.logger.Info().Str("id", req.ID).Int("bytes", len(blob)).Msg("download completed")
	return nil
}

// Active returns the download activities currently in flight.
func (p *Pipeline) Active() []*progress.Activity {
	return p.tracker.Active()
}

// fetch streams the response body in chunkSize reads, reporting progress
// after each chunk. The blob is held in memory until commit; no partial
// data ever reaches the store.
func (p *Pipeline) fetch(ctx context.Context, req Request) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid download url: %w", err)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download request failed: unexpected status %d", resp.StatusCode)
	}

	total := resp.ContentLength
	var buf bytes.Buffer
	if total > 0 {
		buf.Grow(int(total))
	}

	chunk := make([]byte, p.chunkSize)
	for {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			p.tracker.Update(req.ID, progressSubtitle(int64(buf.Len()), total), percentOf(int64(buf.Len()), total))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("download interrupted: %w", readErr)
		}
	}

	if total > 0 && int64(buf.Len()) != total {
		return nil, fmt.Errorf("download truncated: got %d of %d bytes", buf.Len(), total)
	}

	return buf.Bytes(), nil
}

func (p *Pipeline) claim(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[id]; busy {
		return ErrDownloadInFlight
	}
	p.inflight[id] = struct{}{}
	return nil
}

func (p *Pipeline) release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, id)
}

// percentOf maps received/total to 0-100, or Indeterminate when the total
// is unknown.
func percentOf(received, total int64) int {
	if total <= 0 {
		return progress.Indeterminate
	}
	pct := int(received * 100 / total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

func progressSubtitle(received, total int64) string {
	if total <= 0 {
		return fmt.Sprintf("%s received", formatBytes(received))
	}
	return fmt.Sprintf("%s of %s", formatBytes(received), formatBytes(total))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
