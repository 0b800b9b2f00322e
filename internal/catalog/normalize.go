package catalog

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/maxmovies/maxmovies/internal/config"
)

// Normalizer maps heterogeneous upstream payloads into the internal schema.
// Every method is total: any input, including garbage, yields a well-typed
// result with missing fields degraded to defaults. Nothing here ever panics.
//
// The upstream response shape is unstable across revisions: item lists have
// been observed under results.items, as a flat results array, under data and
// as a bare array, with field names renamed between them. The probes below
// are ordered; the first match wins.
type Normalizer struct {
	seriesSentinel    int
	placeholderPoster string
}

// NewNormalizer creates a normalizer using the configured series sentinel
// and placeholder poster.
func NewNormalizer(cfg config.UpstreamConfig) *Normalizer {
	sentinel := cfg.SeriesSentinel
	if sentinel == 0 {
		sentinel = 2
	}
	placeholder := cfg.PlaceholderPoster
	if placeholder == "" {
		placeholder = "/assets/poster-placeholder.svg"
	}
	return &Normalizer{
		seriesSentinel:    sentinel,
		placeholderPoster: placeholder,
	}
}

// NormalizeSearch extracts and maps the item list from a search payload.
func (n *Normalizer) NormalizeSearch(raw json.RawMessage) []MediaSummary {
	items := extractItems(decode(raw))
	out := make([]MediaSummary, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, n.mapSummary(m))
	}
	return out
}

// NormalizeInfo extracts and maps the subject from an info payload. A nil
// result means the payload carried no subject and the caller should render a
// not-found state.
func (n *Normalizer) NormalizeInfo(raw json.RawMessage) *MediaDetail {
	subject := extractSubject(decode(raw))
	if subject == nil {
		return nil
	}

	detail := &MediaDetail{
		MediaSummary: n.mapSummary(subject),
		Trailer:      stringField(subject, "trailer", "trailerUrl", "trailer_url"),
		Actors:       actorsOf(subject),
	}
	if detail.Type == MediaTypeSeries {
		detail.Seasons = n.seasonsOf(subject)
	}
	return detail
}

// NormalizeSources extracts and maps the source list from a sources payload.
// Entries without any usable URL are dropped. An explicit success=false
// signal yields an empty list without further probing.
func (n *Normalizer) NormalizeSources(raw json.RawMessage) []StreamSource {
	v := decode(raw)

	if m, ok := v.(map[string]interface{}); ok {
		if success, ok := m["success"].(bool); ok && !success {
			return []StreamSource{}
		}
	}

	var list []interface{}
	if m, ok := v.(map[string]interface{}); ok {
		if arr, ok := m["results"].([]interface{}); ok {
			list = arr
		} else if arr, ok := m["sources"].([]interface{}); ok {
			list = arr
		}
	} else if arr, ok := v.([]interface{}); ok {
		list = arr
	}

	out := make([]StreamSource, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		src := mapSource(m)
		if src.StreamURL == "" && src.DownloadURL == "" {
			continue
		}
		out = append(out, src)
	}
	return out
}

// mapSummary maps one upstream item, each field defaulted independently.
func (n *Normalizer) mapSummary(m map[string]interface{}) MediaSummary {
	title := stringField(m, "title", "name")
	if title == "" {
		title = "Untitled"
	}

	poster := n.posterOf(m)
	year := yearOf(m)

	rating := stringField(m, "imdbRatingValue", "rating")
	if rating == "" {
		rating = "N/A"
	}

	return MediaSummary{
		ID:          stringField(m, "subjectId", "id", "subject_id", "imdb_id"),
		Title:       title,
		Year:        year,
		Type:        n.typeOf(m),
		Poster:      poster,
		Description: stringField(m, "description", "plot"),
		Rating:      rating,
	}
}

// posterOf resolves the poster URL. A resolved value of "N/A" or empty is
// treated as missing and replaced with the placeholder.
func (n *Normalizer) posterOf(m map[string]interface{}) string {
	poster := ""
	if cover, ok := m["cover"].(map[string]interface{}); ok {
		poster = stringField(cover, "url")
	}
	if poster == "" {
		poster = stringField(m, "thumbnail", "poster")
	}
	if poster == "" {
		// cover as a plain string rather than an object
		if s, ok := m["cover"].(string); ok {
			poster = s
		}
	}
	if poster == "" {
		poster = stringField(m, "image")
	}
	if poster == "" || poster == "N/A" {
		return n.placeholderPoster
	}
	return poster
}

// typeOf classifies movie vs series. The numeric sentinel is configurable
// because observed upstream revisions disagreed on its value.
func (n *Normalizer) typeOf(m map[string]interface{}) MediaType {
	if t, ok := m["type"].(string); ok && strings.EqualFold(t, "series") {
		return MediaTypeSeries
	}
	if st, ok := intOf(m["subjectType"]); ok && st == n.seriesSentinel {
		return MediaTypeSeries
	}
	if isSeries, ok := m["is_series"].(bool); ok && isSeries {
		return MediaTypeSeries
	}
	return MediaTypeMovie
}

// seasonsOf maps the nested season/episode tree of a series subject.
func (n *Normalizer) seasonsOf(m map[string]interface{}) []Season {
	raw, ok := m["seasons"].([]interface{})
	if !ok {
		return nil
	}

	seasons := make([]Season, 0, len(raw))
	for _, entry := range raw {
		sm, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		season := Season{}
		if num, ok := firstInt(sm, "number", "season", "se"); ok {
			season.Number = num
		}

		var eps []interface{}
		if arr, ok := sm["episodes"].([]interface{}); ok {
			eps = arr
		} else if arr, ok := sm["eps"].([]interface{}); ok {
			eps = arr
		}

		for _, epEntry := range eps {
			em, ok := epEntry.(map[string]interface{})
			if !ok {
				continue
			}
			episode := Episode{Title: stringField(em, "title", "name")}
			if num, ok := firstInt(em, "number", "episode", "ep"); ok {
				episode.Number = num
			}

			var streams []interface{}
			for _, key := range []string{"streams", "sources", "resources"} {
				if arr, ok := em[key].([]interface{}); ok {
					streams = arr
					break
				}
			}
			for _, sEntry := range streams {
				srcMap, ok := sEntry.(map[string]interface{})
				if !ok {
					continue
				}
				src := mapSource(srcMap)
				if src.StreamURL == "" && src.DownloadURL == "" {
					continue
				}
				episode.Streams = append(episode.Streams, src)
			}

			season.Episodes = append(season.Episodes, episode)
		}

		sort.Slice(season.Episodes, func(i, j int) bool {
			return season.Episodes[i].Number < season.Episodes[j].Number
		})
		seasons = append(seasons, season)
	}

	sort.Slice(seasons, func(i, j int) bool {
		return seasons[i].Number < seasons[j].Number
	})
	return seasons
}

// mapSource maps one upstream source entry. A bare "url" field is assigned
// by manifest extension: playlists stream, everything else downloads.
func mapSource(m map[string]interface{}) StreamSource {
	src := StreamSource{
		Quality:     stringField(m, "quality", "resolution"),
		Format:      stringField(m, "format"),
		StreamURL:   stringField(m, "stream_url", "streamUrl"),
		DownloadURL: stringField(m, "download_url", "downloadUrl"),
	}
	if size, ok := firstInt64(m, "size", "sizeBytes", "size_bytes"); ok {
		src.SizeBytes = size
	}

	if src.StreamURL == "" && src.DownloadURL == "" {
		if u := stringField(m, "url"); u != "" {
			if strings.Contains(u, ".m3u8") {
				src.StreamURL = u
			} else {
				src.DownloadURL = u
			}
		}
	}
	return src
}

// extractItems locates the item list. Probe order: results.items, results
// (array), data (array), bare array. First array wins; none yields empty.
func extractItems(v interface{}) []interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		if results, ok := m["results"].(map[string]interface{}); ok {
			if items, ok := results["items"].([]interface{}); ok {
				return items
			}
		}
		if arr, ok := m["results"].([]interface{}); ok {
			return arr
		}
		if arr, ok := m["data"].([]interface{}); ok {
			return arr
		}
		return nil
	}
	if arr, ok := v.([]interface{}); ok {
		return arr
	}
	return nil
}

// extractSubject locates the info subject. Probe order: results.subject,
// results (object), subject, the payload itself.
func extractSubject(v interface{}) map[string]interface{} {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	if results, ok := m["results"].(map[string]interface{}); ok {
		if subject, ok := results["subject"].(map[string]interface{}); ok {
			return subject
		}
		return results
	}
	if subject, ok := m["subject"].(map[string]interface{}); ok {
		return subject
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func decode(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// stringField returns the first present, non-empty field among keys,
// coercing JSON numbers to their string form (ids are sometimes numeric).
func stringField(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return formatNumber(v)
		}
	}
	return ""
}

// yearOf takes the year component of releaseDate (substring before the
// first '-'), falling back to a year field, then "N/A".
func yearOf(m map[string]interface{}) string {
	if release := stringField(m, "releaseDate"); release != "" {
		if idx := strings.Index(release, "-"); idx > 0 {
			return release[:idx]
		}
		return release
	}
	if year := stringField(m, "year"); year != "" {
		return year
	}
	return "N/A"
}

func actorsOf(m map[string]interface{}) []string {
	var raw []interface{}
	for _, key := range []string{"actors", "stars", "cast"} {
		if arr, ok := m[key].([]interface{}); ok {
			raw = arr
			break
		}
	}

	actors := make([]string, 0, len(raw))
	for _, entry := range raw {
		switch v := entry.(type) {
		case string:
			if v != "" {
				actors = append(actors, v)
			}
		case map[string]interface{}:
			if name := stringField(v, "name"); name != "" {
				actors = append(actors, name)
			}
		}
	}
	if len(actors) == 0 {
		return nil
	}
	return actors
}

func intOf(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}

func firstInt(m map[string]interface{}, keys ...string) (int, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if i, ok := intOf(v); ok {
				return i, true
			}
		}
	}
	return 0, false
}

func firstInt64(m map[string]interface{}, keys ...string) (int64, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			return int64(v), true
		case string:
			if i, err := strconv.ParseInt(v, 10, 64); err == nil {
				return i, true
			}
		}
	}
	return 0, false
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
