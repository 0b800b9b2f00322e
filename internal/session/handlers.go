package session

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for settings and viewing history.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new session handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers session routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/settings", h.GetSettings)
	g.PUT("/settings", h.UpdateSettings)
	g.GET("/history", h.GetHistory)
	g.POST("/history", h.AddHistory)
}

// GetSettings returns the current settings.
// GET /api/v1/settings
func (h *Handlers) GetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Settings())
}

// UpdateSettings replaces the settings and persists them.
// PUT /api/v1/settings
func (h *Handlers) UpdateSettings(c echo.Context) error {
	var settings Settings
	if err := c.Bind(&settings); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.service.UpdateSettings(c.Request().Context(), settings); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, h.service.Settings())
}

// GetHistory returns the viewing history, most recent first.
// GET /api/v1/history
func (h *Handlers) GetHistory(c echo.Context) error {
	entries, err := h.service.History(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

// AddHistory records a viewed title. Used by the client for playback that
// does not go through the catalog info lookup, such as stored downloads.
// POST /api/v1/history
func (h *Handlers) AddHistory(c echo.Context) error {
	var entry HistoryEntry
	if err := c.Bind(&entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if entry.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing media id")
	}
	if err := h.service.RecordViewed(c.Request().Context(), entry); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
