package player

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for playback session control.
type Handlers struct {
	manager *Manager
	hub     Broadcaster
}

// NewHandlers creates a new player handlers instance.
func NewHandlers(manager *Manager, hub Broadcaster) *Handlers {
	return &Handlers{manager: manager, hub: hub}
}

// RegisterRoutes registers player routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.POST("/player/start", h.Start)
	g.POST("/player/stop", h.Stop)
	g.GET("/player/status", h.Status)
	g.POST("/player/position", h.Position)
	g.POST("/player/event", h.Event)
	g.POST("/player/engine-error", h.EngineError)
	g.POST("/player/key", h.Key)
}

// Start begins a new playback session, replacing any active one.
// POST /api/v1/player/start
func (h *Handlers) Start(c echo.Context) error {
	var req StartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SourceURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing source url")
	}

	surface := NewRemoteSurface(h.hub, req.Poster)
	var engine AdaptiveEngine
	if req.Capabilities.AdaptiveEngine {
		engine = NewRemoteEngine(h.hub)
	}

	session, err := h.manager.Start(c.Request().Context(), req, surface, engine)
	if err != nil {
		if errors.Is(err, ErrStreamUnsupported) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "stream format not supported")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, session.Status())
}

type stopRequest struct {
	Handle string `json:"handle"`
}

// Stop tears down a session. Stopping when nothing is active is a no-op.
// POST /api/v1/player/stop
func (h *Handlers) Stop(c echo.Context) error {
	var req stopRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	h.manager.Stop(req.Handle)
	return c.NoContent(http.StatusNoContent)
}

// Status returns the active session snapshot.
// GET /api/v1/player/status
func (h *Handlers) Status(c echo.Context) error {
	session := h.manager.Active()
	if session == nil {
		return c.JSON(http.StatusOK, Status{State: StateUninitialized})
	}
	return c.JSON(http.StatusOK, session.Status())
}

type positionRequest struct {
	Position float64 `json:"position"`
}

// Position records the client-reported playhead position.
// POST /api/v1/player/position
func (h *Handlers) Position(c echo.Context) error {
	var req positionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	session := h.manager.Active()
	if session == nil {
		return echo.NewHTTPError(http.StatusConflict, "no active playback session")
	}
	session.UpdatePosition(req.Position)
	return c.NoContent(http.StatusNoContent)
}

type eventRequest struct {
	Event string `json:"event"`
}

// Event advances the session state machine on media element events.
// POST /api/v1/player/event
func (h *Handlers) Event(c echo.Context) error {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	session := h.manager.Active()
	if session == nil {
		return echo.NewHTTPError(http.StatusConflict, "no active playback session")
	}
	session.HandleMediaEvent(c.Request().Context(), req.Event)
	return c.NoContent(http.StatusNoContent)
}

type engineErrorRequest struct {
	Kind EngineErrorKind `json:"kind"`
}

// EngineError reports a fatal adaptive-engine error for recovery.
// POST /api/v1/player/engine-error
func (h *Handlers) EngineError(c echo.Context) error {
	var req engineErrorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	session := h.manager.Active()
	if session == nil {
		return echo.NewHTTPError(http.StatusConflict, "no active playback session")
	}
	session.HandleEngineError(req.Kind)
	return c.NoContent(http.StatusNoContent)
}

type keyRequest struct {
	Key string `json:"key"`
}

// Key applies a keyboard shortcut to the active session.
// POST /api/v1/player/key
func (h *Handlers) Key(c echo.Context) error {
	var req keyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.manager.HandleKey(req.Key); err != nil {
		if errors.Is(err, ErrNoActiveSession) {
			return echo.NewHTTPError(http.StatusConflict, "no active playback session")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
