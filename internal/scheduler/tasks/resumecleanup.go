package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxmovies/maxmovies/internal/config"
	"github.com/maxmovies/maxmovies/internal/scheduler"
	"github.com/maxmovies/maxmovies/internal/session"
)

const ResumeCleanupTaskID = "resume-cleanup"

// ResumeCleanupTask purges playback resume positions that have not been
// touched within the configured retention window.
type ResumeCleanupTask struct {
	sessions *session.Service
	maxAge   time.Duration
	logger   zerolog.Logger
}

// NewResumeCleanupTask creates a new resume position cleanup task.
func NewResumeCleanupTask(sessions *session.Service, cfg config.PlaybackConfig, logger zerolog.Logger) *ResumeCleanupTask {
	maxAgeDays := cfg.ResumeMaxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = 90
	}
	return &ResumeCleanupTask{
		sessions: sessions,
		maxAge:   time.Duration(maxAgeDays) * 24 * time.Hour,
		logger:   logger.With().Str("task", "resume-cleanup").Logger(),
	}
}

// Run deletes stale resume positions.
func (t *ResumeCleanupTask) Run(ctx context.Context) error {
	purged, err := t.sessions.PurgeStaleResumePositions(ctx, t.maxAge)
	if err != nil {
		t.logger.Error().Err(err).Msg("Resume position cleanup failed")
		return err
	}
	if purged > 0 {
		t.logger.Info().Int64("purged", purged).Msg("Purged stale resume positions")
	}
	return nil
}

// RegisterResumeCleanupTask registers the resume cleanup task with the
// scheduler. It runs daily at 3 AM.
func RegisterResumeCleanupTask(sched *scheduler.Scheduler, sessions *session.Service, cfg config.PlaybackConfig, logger zerolog.Logger) error {
	task := NewResumeCleanupTask(sessions, cfg, logger)

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          ResumeCleanupTaskID,
		Name:        "Resume Position Cleanup",
		Description: "Deletes playback resume positions older than the retention period",
		Cron:        "0 3 * * *",
		RunOnStart:  false,
		Func:        task.Run,
	})
}
