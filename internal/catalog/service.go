package catalog

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/maxmovies/maxmovies/internal/session"
)

// Gateway is the upstream fetch boundary. Implementations never fail; the
// bool result reports whether the payload came from the mock dataset.
type Gateway interface {
	Search(ctx context.Context, query string, page int, mediaType string, background bool) (json.RawMessage, bool)
	Info(ctx context.Context, id string) (json.RawMessage, bool)
	Sources(ctx context.Context, id string, season, episode int) (json.RawMessage, bool)
}

// HistoryRecorder receives viewed-title events.
type HistoryRecorder interface {
	RecordViewed(ctx context.Context, entry session.HistoryEntry) error
}

// Service is the catalog facade the view layer calls: search, title info and
// stream sources, all in the normalized internal schema.
type Service struct {
	gateway    Gateway
	normalizer *Normalizer
	history    HistoryRecorder
	logger     zerolog.Logger
}

// NewService creates a catalog service. history may be nil.
func NewService(gateway Gateway, normalizer *Normalizer, history HistoryRecorder, logger zerolog.Logger) *Service {
	return &Service{
		gateway:    gateway,
		normalizer: normalizer,
		history:    history,
		logger:     logger.With().Str("component", "catalog").Logger(),
	}
}

// Search queries the catalog and returns normalized summaries. Failures
// upstream degrade to mock data inside the gateway, so Search always
// returns a well-formed (possibly empty) result.
func (s *Service) Search(ctx context.Context, query string, page int, mediaType string, background bool) *SearchResult {
	raw, fromMock := s.gateway.Search(ctx, query, page, mediaType, background)
	items := s.normalizer.NormalizeSearch(raw)

	s.logger.Debug().
		Str("query", query).
		Int("results", len(items)).
		Bool("fromMock", fromMock).
		Msg("search completed")

	return &SearchResult{Items: items, FromMock: fromMock}
}

// GetInfo returns the detail for one title, or ErrNotFound when the payload
// carries no subject. A successful lookup is recorded in the watch history.
func (s *Service) GetInfo(ctx context.Context, id string) (*MediaDetail, error) {
	raw, _ := s.gateway.Info(ctx, id)
	detail := s.normalizer.NormalizeInfo(raw)
	if detail == nil {
		return nil, ErrNotFound
	}
	if detail.ID == "" {
		detail.ID = id
	}

	if s.history != nil {
		entry := session.HistoryEntry{ID: detail.ID, Title: detail.Title, Poster: detail.Poster}
		if err := s.history.RecordViewed(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("id", detail.ID).Msg("failed to record history")
		}
	}

	return detail, nil
}

// GetSources returns the usable sources for a title. Entries without any
// URL are already filtered; the result may be empty.
func (s *Service) GetSources(ctx context.Context, id string, season, episode int) []StreamSource {
	raw, fromMock := s.gateway.Sources(ctx, id, season, episode)
	sources := s.normalizer.NormalizeSources(raw)

	s.logger.Debug().
		Str("id", id).
		Int("sources", len(sources)).
		Bool("fromMock", fromMock).
		Msg("sources resolved")

	return sources
}

// DownloadSource picks the source to persist offline: the first one carrying
// a download URL, else the first with any URL.
func (s *Service) DownloadSource(ctx context.Context, id string, season, episode int) (StreamSource, error) {
	sources := s.GetSources(ctx, id, season, episode)
	if len(sources) == 0 {
		return StreamSource{}, ErrNoSourceAvailable
	}
	for _, src := range sources {
		if src.DownloadURL != "" {
			return src, nil
		}
	}
	return sources[0], nil
}
