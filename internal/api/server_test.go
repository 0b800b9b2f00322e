package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maxmovies/maxmovies/internal/config"
	"github.com/maxmovies/maxmovies/internal/scheduler"
	"github.com/maxmovies/maxmovies/internal/testutil"
	"github.com/maxmovies/maxmovies/internal/websocket"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	tdb := testutil.NewTestDB(t)
	hub := websocket.NewHub()
	go hub.Run()

	sched, err := scheduler.New(tdb.Logger)
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}

	cfg := config.Default()
	cfg.Database.Path = tdb.Path

	server := NewServer(tdb.Manager, hub, cfg, sched, tdb.Logger)
	if err := server.Sessions().Load(context.Background()); err != nil {
		t.Fatalf("failed to load session state: %v", err)
	}
	// keep requests off the real upstream
	if err := server.Sessions().SetMockMode(context.Background(), true); err != nil {
		t.Fatalf("failed to enable mock mode: %v", err)
	}
	return server
}

func doRequest(t *testing.T, server *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var status map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid status payload: %v", err)
	}
	if status["mockMode"] != true {
		t.Errorf("expected mockMode true, got %v", status["mockMode"])
	}
}

func TestSearchEndpointMockMode(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/search?q=batman", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Items    []map[string]interface{} `json:"items"`
		FromMock bool                     `json:"fromMock"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid search payload: %v", err)
	}
	if !result.FromMock {
		t.Error("mock mode results should be flagged fromMock")
	}
	if len(result.Items) == 0 {
		t.Error("expected fixture-backed search results")
	}
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/search", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without q, got %d", rec.Code)
	}
}

func TestInfoAndHistoryFlow(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/info/m1001", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// viewing a title lands it in history
	rec = doRequest(t, server, http.MethodGet, "/api/v1/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var history []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("invalid history payload: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodPut, "/api/v1/settings",
		`{"quality":"1080p","lang":"fr","dataSaver":true,"mockMode":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, server, http.MethodGet, "/api/v1/settings", "")
	var settings map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &settings); err != nil {
		t.Fatalf("invalid settings payload: %v", err)
	}
	if settings["quality"] != "1080p" || settings["lang"] != "fr" {
		t.Errorf("settings did not round-trip: %v", settings)
	}
}

func TestDownloadsEmptyList(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/downloads", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var downloads []interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &downloads); err != nil {
		t.Fatalf("invalid downloads payload: %v", err)
	}
	if len(downloads) != 0 {
		t.Errorf("expected empty download list, got %d", len(downloads))
	}
}

func TestPlayerStatusWithoutSession(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/player/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("invalid status payload: %v", err)
	}
	if status["state"] != "uninitialized" {
		t.Errorf("expected uninitialized state, got %v", status["state"])
	}
}

func TestUnknownDownloadReturns404(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/downloads/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
