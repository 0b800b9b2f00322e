package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for catalog operations.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new catalog handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers catalog routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/search", h.Search)
	g.GET("/info/:id", h.Info)
	g.GET("/sources/:id", h.Sources)
}

// Search handles catalog search.
// GET /api/v1/search?q=batman&page=1&type=movie
func (h *Handlers) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing query parameter q")
	}

	page := 1
	if p := c.QueryParam("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	background := c.QueryParam("background") == "true"

	result := h.service.Search(c.Request().Context(), query, page, c.QueryParam("type"), background)
	return c.JSON(http.StatusOK, result)
}

// Info handles title detail lookup.
// GET /api/v1/info/:id
func (h *Handlers) Info(c echo.Context) error {
	detail, err := h.service.GetInfo(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "title not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, detail)
}

// Sources handles stream source resolution.
// GET /api/v1/sources/:id?season=1&episode=2
func (h *Handlers) Sources(c echo.Context) error {
	season, _ := strconv.Atoi(c.QueryParam("season"))
	episode, _ := strconv.Atoi(c.QueryParam("episode"))

	sources := h.service.GetSources(c.Request().Context(), c.Param("id"), season, episode)
	return c.JSON(http.StatusOK, sources)
}
