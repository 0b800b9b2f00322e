package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/maxmovies/maxmovies/internal/api"
	"github.com/maxmovies/maxmovies/internal/config"
	"github.com/maxmovies/maxmovies/internal/database"
	"github.com/maxmovies/maxmovies/internal/logger"
	"github.com/maxmovies/maxmovies/internal/scheduler"
	"github.com/maxmovies/maxmovies/internal/scheduler/tasks"
	"github.com/maxmovies/maxmovies/internal/websocket"
)

func main() {
	// .env is optional; real config comes from file and environment
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	log.Info().
		Str("logLevel", cfg.Logging.Level).
		Str("upstream", cfg.Upstream.BaseURL).
		Msg("starting MaxMovies")

	dbManager := database.NewManager(cfg.Database.Path, log.Logger)
	defer dbManager.Close()

	log.Info().Msg("running database migrations")
	if err := dbManager.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	hub := websocket.NewHub()
	go hub.Run()

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}

	server := api.NewServer(dbManager, hub, cfg, sched, log.Logger)

	if err := server.Sessions().Load(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to load session state")
	}

	if err := tasks.RegisterResumeCleanupTask(sched, server.Sessions(), cfg.Playback, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("failed to register resume cleanup task")
	}
	if err := tasks.RegisterStorageHealthTask(sched, dbManager, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("failed to register storage health task")
	}
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	address := cfg.Server.Address()
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(address)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("server stopped unexpectedly")
		}
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown failed")
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("MaxMovies stopped")
}
