// Package api assembles the HTTP surface: catalog search and detail,
// downloads, playback control, settings, history and the WebSocket.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/maxmovies/maxmovies/internal/catalog"
	"github.com/maxmovies/maxmovies/internal/config"
	"github.com/maxmovies/maxmovies/internal/database"
	"github.com/maxmovies/maxmovies/internal/download"
	"github.com/maxmovies/maxmovies/internal/notification"
	"github.com/maxmovies/maxmovies/internal/offline"
	"github.com/maxmovies/maxmovies/internal/player"
	"github.com/maxmovies/maxmovies/internal/progress"
	"github.com/maxmovies/maxmovies/internal/scheduler"
	"github.com/maxmovies/maxmovies/internal/session"
	"github.com/maxmovies/maxmovies/internal/upstream"
	"github.com/maxmovies/maxmovies/internal/websocket"
	"github.com/maxmovies/maxmovies/web"
)

// Server handles HTTP requests for the MaxMovies API.
type Server struct {
	echo      *echo.Echo
	db        *database.Manager
	hub       *websocket.Hub
	logger    zerolog.Logger
	cfg       *config.Config
	scheduler *scheduler.Scheduler
	startTime time.Time

	// Services
	notifier       *notification.Service
	sessionService *session.Service
	upstreamClient *upstream.Client
	catalogService *catalog.Service
	offlineStore   *offline.Store
	tracker        *progress.Tracker
	pipeline       *download.Pipeline
	playerManager  *player.Manager
}

// NewServer creates a new API server instance and wires up all services.
func NewServer(db *database.Manager, hub *websocket.Hub, cfg *config.Config, sched *scheduler.Scheduler, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		db:        db,
		hub:       hub,
		logger:    logger,
		cfg:       cfg,
		scheduler: sched,
		startTime: time.Now(),
	}

	s.notifier = notification.NewService(hub, logger)
	s.sessionService = session.NewService(db, logger)

	// Toggling mock mode from the client goes through the hub; persist the
	// flag so it survives restarts.
	hub.SetMockModeHandler(func(enabled bool) error {
		return s.sessionService.SetMockMode(context.Background(), enabled)
	})

	s.upstreamClient = upstream.NewClient(cfg.Upstream, s.sessionService, s.notifier, logger)
	s.catalogService = catalog.NewService(s.upstreamClient, catalog.NewNormalizer(cfg.Upstream), s.sessionService, logger)

	s.offlineStore = offline.NewStore(db, s.notifier, logger)
	s.tracker = progress.NewTracker(hub, logger)
	s.pipeline = download.NewPipeline(cfg.Download, s.offlineStore, s.tracker, s.notifier, logger)

	s.playerManager = player.NewManager(cfg.Playback, s.sessionService, s.notifier, logger)

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID
	s.echo.Use(middleware.RequestID())

	// CORS
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// Request logging
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	// Gzip compression
	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Skip compression for WebSocket
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", s.healthCheck)

	// WebSocket endpoint
	s.echo.GET("/ws", s.hub.HandleWebSocket)

	// Static assets (placeholder artwork)
	if assets, err := web.AssetsFS(); err == nil {
		s.echo.StaticFS("/assets", assets)
	} else {
		s.logger.Warn().Err(err).Msg("embedded assets unavailable")
	}

	// API v1 group
	api := s.echo.Group("/api/v1")

	// System routes
	api.GET("/status", s.getStatus)

	// Catalog routes (search, detail, sources)
	catalogHandlers := catalog.NewHandlers(s.catalogService)
	catalogHandlers.RegisterRoutes(api)

	// Download routes
	downloadHandlers := download.NewHandlers(s.pipeline, s.offlineStore, s.catalogService)
	downloadHandlers.RegisterRoutes(api)

	// Player routes
	playerHandlers := player.NewHandlers(s.playerManager, s.hub)
	playerHandlers.RegisterRoutes(api)

	// Settings and history routes
	sessionHandlers := session.NewHandlers(s.sessionService)
	sessionHandlers.RegisterRoutes(api)

	// Scheduled task routes
	api.GET("/tasks", s.listTasks)
	api.POST("/tasks/:id/run", s.runTask)
}

// Start begins serving HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server and tears down any active
// playback session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	s.playerManager.StopAll()
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance (for serving static files).
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Sessions returns the session service for wiring outside the API, such
// as scheduled maintenance tasks.
func (s *Server) Sessions() *session.Service {
	return s.sessionService
}

// --- Handler implementations ---

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	ctx := c.Request().Context()

	downloads, err := s.offlineStore.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	var storedBytes int64
	for _, d := range downloads {
		storedBytes += d.SizeBytes
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":       "0.0.1-dev",
		"startTime":     s.startTime.Format(time.RFC3339),
		"mockMode":      s.sessionService.MockMode(),
		"downloadCount": len(downloads),
		"storedBytes":   storedBytes,
		"wsClients":     s.hub.ClientCount(),
	})
}

func (s *Server) listTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.scheduler.ListTasks())
}

func (s *Server) runTask(c echo.Context) error {
	if err := s.scheduler.RunNow(c.Param("id")); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "started"})
}
