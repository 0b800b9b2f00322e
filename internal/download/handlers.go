package download

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/maxmovies/maxmovies/internal/catalog"
	"github.com/maxmovies/maxmovies/internal/offline"
)

// SourceResolver picks the stream source to download for a title.
type SourceResolver interface {
	DownloadSource(ctx context.Context, id string, season, episode int) (catalog.StreamSource, error)
}

// Handlers provides HTTP handlers for download operations.
type Handlers struct {
	pipeline *Pipeline
	store    *offline.Store
	resolver SourceResolver
}

// NewHandlers creates a new download handlers instance.
func NewHandlers(pipeline *Pipeline, store *offline.Store, resolver SourceResolver) *Handlers {
	return &Handlers{
		pipeline: pipeline,
		store:    store,
		resolver: resolver,
	}
}

// RegisterRoutes registers download routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/downloads", h.List)
	g.GET("/downloads/active", h.Active)
	g.POST("/downloads", h.Start)
	g.GET("/downloads/:id", h.Get)
	g.GET("/downloads/:id/blob", h.Blob)
	g.DELETE("/downloads/:id", h.Delete)
	g.DELETE("/downloads", h.Clear)
}

type startRequest struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Poster  string `json:"poster"`
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
}

// Start resolves a download source for the title and kicks off the
// pipeline in the background. Progress arrives over the WebSocket.
// POST /api/v1/downloads
func (h *Handlers) Start(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing media id")
	}

	source, err := h.resolver.DownloadSource(c.Request().Context(), req.ID, req.Season, req.Episode)
	if err != nil {
		if errors.Is(err, catalog.ErrNoSourceAvailable) {
			return echo.NewHTTPError(http.StatusNotFound, "no downloadable source available")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	downloadReq := Request{
		ID:     req.ID,
		Title:  req.Title,
		Poster: req.Poster,
		URL:    source.URL(),
	}

	if err := h.pipeline.StartAsync(downloadReq); err != nil {
		if errors.Is(err, ErrDownloadInFlight) {
			return echo.NewHTTPError(http.StatusConflict, "download already in progress")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusAccepted, map[string]string{"id": req.ID, "status": "started"})
}

// List returns stored download metadata, newest first.
// GET /api/v1/downloads
func (h *Handlers) List(c echo.Context) error {
	records, err := h.store.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, records)
}

// Active returns downloads currently in flight.
// GET /api/v1/downloads/active
func (h *Handlers) Active(c echo.Context) error {
	return c.JSON(http.StatusOK, h.pipeline.Active())
}

// Get returns metadata for one stored download.
// GET /api/v1/downloads/:id
func (h *Handlers) Get(c echo.Context) error {
	record, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "download not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	record.Blob = nil
	return c.JSON(http.StatusOK, record)
}

// Blob serves the stored media bytes for offline playback.
// GET /api/v1/downloads/:id/blob
func (h *Handlers) Blob(c echo.Context) error {
	record, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "download not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, "application/octet-stream", record.Blob)
}

// Delete removes one stored download.
// DELETE /api/v1/downloads/:id
func (h *Handlers) Delete(c echo.Context) error {
	if err := h.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// Clear removes all stored downloads.
// DELETE /api/v1/downloads
func (h *Handlers) Clear(c echo.Context) error {
	if err := h.store.Clear(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
