package catalog

import "errors"

// MediaType classifies a catalog entry.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

var (
	// ErrNotFound means the upstream payload carried no subject for the id.
	ErrNotFound = errors.New("title not found")

	// ErrNoSourceAvailable means every candidate source lacked a usable URL.
	ErrNoSourceAvailable = errors.New("no playable source available")
)

// MediaSummary is a search-result or catalog entry in the internal schema.
// All fields are always populated: missing upstream data degrades to the
// documented defaults, never to empty composites.
type MediaSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Year        string    `json:"year"`
	Type        MediaType `json:"type"`
	Poster      string    `json:"poster"`
	Description string    `json:"description"`
	Rating      string    `json:"rating"`
}

// MediaDetail extends MediaSummary with detail-only fields. Seasons is only
// populated for series.
type MediaDetail struct {
	MediaSummary
	Trailer string   `json:"trailer,omitempty"`
	Actors  []string `json:"actors,omitempty"`
	Seasons []Season `json:"seasons,omitempty"`
}

// Season groups a series' episodes.
type Season struct {
	Number   int       `json:"number"`
	Episodes []Episode `json:"episodes"`
}

// Episode is one entry of a season.
type Episode struct {
	Number  int            `json:"number"`
	Title   string         `json:"title"`
	Streams []StreamSource `json:"streams"`
}

// StreamSource is one playable or downloadable rendition. At least one of
// StreamURL or DownloadURL is set; sources with neither are filtered out
// before they reach playback or download.
type StreamSource struct {
	Quality     string `json:"quality"`
	Format      string `json:"format"`
	SizeBytes   int64  `json:"sizeBytes,omitempty"`
	StreamURL   string `json:"streamUrl,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// URL returns the preferred playable URL: stream first, then download.
func (s StreamSource) URL() string {
	if s.StreamURL != "" {
		return s.StreamURL
	}
	return s.DownloadURL
}

// SearchResult is the normalized output of a search request.
type SearchResult struct {
	Items    []MediaSummary `json:"items"`
	FromMock bool           `json:"fromMock"`
}
