package tasks

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/maxmovies/maxmovies/internal/database"
	"github.com/maxmovies/maxmovies/internal/scheduler"
)

const StorageHealthTaskID = "storage-health"

// StorageHealthTask verifies the offline storage database is reachable
// and reports how much space stored downloads occupy.
type StorageHealthTask struct {
	db     *database.Manager
	logger zerolog.Logger
}

// NewStorageHealthTask creates a new storage health check task.
func NewStorageHealthTask(db *database.Manager, logger zerolog.Logger) *StorageHealthTask {
	return &StorageHealthTask{
		db:     db,
		logger: logger.With().Str("task", "storage-health").Logger(),
	}
}

// Run executes the storage health check.
func (t *StorageHealthTask) Run(ctx context.Context) error {
	conn, err := t.db.Conn()
	if err != nil {
		t.logger.Error().Err(err).Msg("Storage health check failed to open database")
		return err
	}

	if err := conn.PingContext(ctx); err != nil {
		t.logger.Error().Err(err).Msg("Storage health check ping failed")
		return err
	}

	var count int64
	var bytes int64
	row := conn.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM downloads`)
	if err := row.Scan(&count, &bytes); err != nil {
		t.logger.Error().Err(err).Msg("Storage health check query failed")
		return err
	}

	t.logger.Info().
		Int64("downloads", count).
		Int64("bytes", bytes).
		Msg("Storage health check completed")
	return nil
}

// RegisterStorageHealthTask registers the storage health check task with
// the scheduler. It runs hourly and once at startup.
func RegisterStorageHealthTask(sched *scheduler.Scheduler, db *database.Manager, logger zerolog.Logger) error {
	task := NewStorageHealthTask(db, logger)

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          StorageHealthTaskID,
		Name:        "Storage Health Check",
		Description: "Verifies the offline store is reachable and reports usage",
		Cron:        "@every 1h",
		RunOnStart:  true,
		Func:        task.Run,
	})
}
