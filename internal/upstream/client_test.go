package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxmovies/maxmovies/internal/config"
	"github.com/maxmovies/maxmovies/internal/notification"
)

type fixedMode bool

func (f fixedMode) MockMode() bool { return bool(f) }

func testLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
}

func newTestClient(t *testing.T, baseURL string, mock bool, notifier notification.Notifier) *Client {
	t.Helper()
	cfg := config.UpstreamConfig{
		BaseURL:   baseURL,
		Timeout:   1,
		RateLimit: 100,
	}
	return NewClient(cfg, fixedMode(mock), notifier, testLogger(t))
}

func TestSearchLive(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"results":{"items":[{"title":"Live"}]}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, false, notification.Nop())
	payload, fromMock := client.Search(context.Background(), "batman", 0, "", false)

	if fromMock {
		t.Fatal("live response should not be flagged as mock")
	}
	if gotPath != "/search/batman" {
		t.Errorf("path: got %q", gotPath)
	}
	// page and type get their defaults
	if gotQuery != "page=1&type=movie" {
		t.Errorf("query: got %q", gotQuery)
	}
	if string(payload) != `{"results":{"items":[{"title":"Live"}]}}` {
		t.Errorf("payload: got %s", payload)
	}
}

func TestTimeoutFallsBackToMockWithOneNotification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
	}))
	defer server.Close()

	recorder := notification.NewRecorder()
	client := newTestClient(t, server.URL, false, recorder)

	payload, fromMock := client.Search(context.Background(), "batman", 1, "movie", false)
	if !fromMock {
		t.Fatal("timeout should fall back to mock data")
	}
	if !json.Valid(payload) {
		t.Fatal("mock payload must be valid JSON")
	}
	var parsed struct {
		Results struct {
			Items []map[string]interface{} `json:"items"`
		} `json:"results"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("failed to parse mock payload: %v", err)
	}
	if len(parsed.Results.Items) == 0 {
		t.Error("search fixture should contain items")
	}
	if recorder.Count() != 1 {
		t.Errorf("expected exactly one notification, got %d", recorder.Count())
	}
}

func TestBackgroundFailureSuppressesNotification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	recorder := notification.NewRecorder()
	client := newTestClient(t, server.URL, false, recorder)

	_, fromMock := client.Search(context.Background(), "batman", 1, "movie", true)
	if !fromMock {
		t.Fatal("server error should fall back to mock data")
	}
	if recorder.Count() != 0 {
		t.Errorf("background request should not notify, got %d", recorder.Count())
	}
}

func TestMockModeSkipsNetwork(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	recorder := notification.NewRecorder()
	client := newTestClient(t, server.URL, true, recorder)

	_, fromMock := client.Info(context.Background(), "m1001")
	if !fromMock {
		t.Fatal("mock mode should serve fixtures")
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Errorf("mock mode must not hit the network, got %d requests", hits)
	}
	// deliberate mock mode is not a connection issue
	if recorder.Count() != 0 {
		t.Errorf("mock mode should not notify, got %d", recorder.Count())
	}
}

func TestHTTPErrorFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, false, notification.Nop())
	payload, fromMock := client.Info(context.Background(), "missing")
	if !fromMock {
		t.Fatal("non-2xx should fall back to mock data")
	}
	if !json.Valid(payload) {
		t.Error("fallback payload must be valid JSON")
	}
}

func TestMalformedResponseFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [truncated`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, false, notification.Nop())
	_, fromMock := client.Sources(context.Background(), "m1001", 0, 0)
	if !fromMock {
		t.Fatal("malformed JSON should fall back to mock data")
	}
}

func TestSourcesSeasonEpisodeParams(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, false, notification.Nop())

	client.Sources(context.Background(), "s1", 2, 5)
	if gotQuery != "episode=5&season=2" {
		t.Errorf("expected season and episode params, got %q", gotQuery)
	}

	// season without episode sends neither
	client.Sources(context.Background(), "s1", 2, 0)
	if gotQuery != "" {
		t.Errorf("expected no params when episode missing, got %q", gotQuery)
	}
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"https://api.example/api", "/search/q", "https://api.example/api/search/q"},
		{"https://api.example/api/", "/search/q", "https://api.example/api/search/q"},
		{"https://api.example/api/", "search/q", "https://api.example/api/search/q"},
	}
	for _, tt := range tests {
		if got := joinURL(tt.base, tt.path); got != tt.want {
			t.Errorf("joinURL(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}
