package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/maxmovies/maxmovies/internal/config"
	"github.com/maxmovies/maxmovies/internal/notification"
)

// Kind identifies which logical endpoint a request targets. It selects the
// mock fixture served on fallback.
type Kind string

const (
	KindSearch  Kind = "search"
	KindInfo    Kind = "info"
	KindSources Kind = "sources"
)

// maxErrorBody caps how much of a failed response body is kept for logs.
const maxErrorBody = 512

// ModeSource reports whether the gateway should skip the network entirely.
type ModeSource interface {
	MockMode() bool
}

// Client is the gateway to the upstream movie/series API. It never surfaces
// an error to callers: every failure degrades to the bundled mock dataset
// for the requested endpoint kind.
type Client struct {
	httpClient *http.Client
	cfg        config.UpstreamConfig
	mode       ModeSource
	notifier   notification.Notifier
	limiter    *rate.Limiter
	group      singleflight.Group
	logger     zerolog.Logger
}

// NewClient creates an upstream client.
func NewClient(cfg config.UpstreamConfig, mode ModeSource, notifier notification.Notifier, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}
	if notifier == nil {
		notifier = notification.Nop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		cfg:      cfg,
		mode:     mode,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(rps), int(rps*2)),
		logger:   logger.With().Str("component", "upstream").Logger(),
	}
}

// Search queries the upstream catalog. Page defaults to 1 and mediaType to
// "movie" to match the upstream contract.
func (c *Client) Search(ctx context.Context, query string, page int, mediaType string, background bool) (json.RawMessage, bool) {
	if page < 1 {
		page = 1
	}
	if mediaType == "" {
		mediaType = "movie"
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("type", mediaType)

	return c.get(ctx, KindSearch, "/search/"+url.PathEscape(query), params, background)
}

// Info fetches details for a single title.
func (c *Client) Info(ctx context.Context, id string) (json.RawMessage, bool) {
	return c.get(ctx, KindInfo, "/info/"+url.PathEscape(id), nil, false)
}

// Sources fetches stream/download sources for a title. Season and episode
// are only sent when both are set, matching the upstream contract.
func (c *Client) Sources(ctx context.Context, id string, season, episode int) (json.RawMessage, bool) {
	var params url.Values
	if season > 0 && episode > 0 {
		params = url.Values{}
		params.Set("season", strconv.Itoa(season))
		params.Set("episode", strconv.Itoa(episode))
	}
	return c.get(ctx, KindSources, "/sources/"+url.PathEscape(id), params, false)
}

// get performs one request against the upstream API. The bool result is true
// when the payload came from the mock dataset rather than the live API.
func (c *Client) get(ctx context.Context, kind Kind, path string, params url.Values, background bool) (json.RawMessage, bool) {
	if c.mode != nil && c.mode.MockMode() {
		return c.mockPayload(kind), true
	}

	reqURL := joinURL(c.cfg.BaseURL, path)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	// Identical in-flight requests share one round trip.
	payload, err, _ := c.group.Do(reqURL, func() (interface{}, error) {
		return c.fetch(ctx, reqURL)
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("url", reqURL).Str("kind", string(kind)).Msg("upstream request failed, serving mock data")
		if !background {
			c.notifier.Notify("Connection issue. Switching to offline data.", notification.LevelError)
		}
		return c.mockPayload(kind), true
	}

	return payload.(json.RawMessage), false
}

// fetch performs the live round trip and classifies failures.
func (c *Client) fetch(ctx context.Context, reqURL string) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &HTTPError{Status: resp.StatusCode, Body: snippet}
	}

	// Normalization happens strictly after the full body is received;
	// there is no streaming JSON parsing.
	if !json.Valid(body) {
		return nil, ErrMalformedResponse
	}

	return json.RawMessage(body), nil
}

// joinURL joins base and path, collapsing duplicate slashes at the seam.
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
