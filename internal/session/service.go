package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxmovies/maxmovies/internal/database"
)

// Service is the process-wide session state container: settings, watch
// history, the mock-mode flag and playback resume positions. State lives in
// SQLite; settings are cached in memory and written back on every mutation.
type Service struct {
	db     *database.Manager
	logger zerolog.Logger

	mu       sync.RWMutex
	settings Settings
}

// NewService creates a session service over the given database.
func NewService(db *database.Manager, logger zerolog.Logger) *Service {
	return &Service{
		db:       db,
		logger:   logger.With().Str("component", "session").Logger(),
		settings: DefaultSettings(),
	}
}

// Load reads persisted settings into the in-memory cache. Missing keys keep
// their defaults.
func (s *Service) Load(ctx context.Context) error {
	conn, err := s.db.Conn()
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	settings := DefaultSettings()
	if v, err := getSetting(ctx, conn, keyQuality); err == nil {
		settings.Quality = v
	}
	if v, err := getSetting(ctx, conn, keyLang); err == nil {
		settings.Lang = v
	}
	if v, err := getSetting(ctx, conn, keyDataSaver); err == nil {
		settings.DataSaver = v == "true"
	}
	if v, err := getSetting(ctx, conn, keyMockMode); err == nil {
		settings.MockMode = v == "true"
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	s.logger.Debug().
		Str("quality", settings.Quality).
		Str("lang", settings.Lang).
		Bool("mockMode", settings.MockMode).
		Msg("session state loaded")

	return nil
}

// Settings returns the current settings.
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings replaces the settings and persists them.
func (s *Service) UpdateSettings(ctx context.Context, settings Settings) error {
	conn, err := s.db.Conn()
	if err != nil {
		return err
	}

	pairs := map[string]string{
		keyQuality:   settings.Quality,
		keyLang:      settings.Lang,
		keyDataSaver: strconv.FormatBool(settings.DataSaver),
		keyMockMode:  strconv.FormatBool(settings.MockMode),
	}
	for key, value := range pairs {
		if err := setSetting(ctx, conn, key, value); err != nil {
			return fmt.Errorf("failed to persist setting %q: %w", key, err)
		}
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()

	return nil
}

// MockMode reports whether the gateway should skip the network entirely.
func (s *Service) MockMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.MockMode
}

// SetMockMode flips the mock-mode flag and persists it.
func (s *Service) SetMockMode(ctx context.Context, enabled bool) error {
	conn, err := s.db.Conn()
	if err != nil {
		return err
	}
	if err := setSetting(ctx, conn, keyMockMode, strconv.FormatBool(enabled)); err != nil {
		return err
	}

	s.mu.Lock()
	s.settings.MockMode = enabled
	s.mu.Unlock()

	s.logger.Info().Bool("enabled", enabled).Msg("mock mode changed")
	return nil
}

// RecordViewed moves the item to the front of the watch history, deduplicated
// by id and capped at HistoryLimit entries.
func (s *Service) RecordViewed(ctx context.Context, entry HistoryEntry) error {
	if entry.ID == "" {
		return errors.New("history entry requires an id")
	}

	conn, err := s.db.Conn()
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO history (media_id, title, poster, viewed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(media_id) DO UPDATE SET
			title = excluded.title,
			poster = excluded.poster,
			viewed_at = excluded.viewed_at`,
		entry.ID, entry.Title, entry.Poster, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}

	_, err = conn.ExecContext(ctx, `
		DELETE FROM history WHERE media_id NOT IN (
			SELECT media_id FROM history ORDER BY viewed_at DESC LIMIT ?
		)`, HistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	return nil
}

// History returns the watch history, most-recent-first.
func (s *Service) History(ctx context.Context) ([]HistoryEntry, error) {
	conn, err := s.db.Conn()
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `
		SELECT media_id, title, poster FROM history
		ORDER BY viewed_at DESC LIMIT ?`, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, HistoryLimit)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.Poster); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ResumePosition returns the persisted playback position for a source
// identity, if one exists.
func (s *Service) ResumePosition(ctx context.Context, identity string) (float64, bool) {
	conn, err := s.db.Conn()
	if err != nil {
		return 0, false
	}

	var pos float64
	err = conn.QueryRowContext(ctx,
		`SELECT position_seconds FROM resume_positions WHERE source_identity = ?`,
		identity).Scan(&pos)
	if err != nil {
		return 0, false
	}
	return pos, true
}

// SetResumePosition persists the playback position for a source identity.
func (s *Service) SetResumePosition(ctx context.Context, identity string, seconds float64) error {
	conn, err := s.db.Conn()
	if err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO resume_positions (source_identity, position_seconds, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(source_identity) DO UPDATE SET
			position_seconds = excluded.position_seconds,
			updated_at = excluded.updated_at`,
		identity, seconds, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to persist resume position: %w", err)
	}
	return nil
}

// ClearResumePosition drops the persisted position for a source identity.
func (s *Service) ClearResumePosition(ctx context.Context, identity string) error {
	conn, err := s.db.Conn()
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx,
		`DELETE FROM resume_positions WHERE source_identity = ?`, identity)
	return err
}

// PurgeStaleResumePositions deletes positions not updated within maxAge and
// returns how many were removed.
func (s *Service) PurgeStaleResumePositions(ctx context.Context, maxAge time.Duration) (int64, error) {
	conn, err := s.db.Conn()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	res, err := conn.ExecContext(ctx,
		`DELETE FROM resume_positions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge resume positions: %w", err)
	}
	return res.RowsAffected()
}

func getSetting(ctx context.Context, conn *sql.DB, key string) (string, error) {
	var value string
	err := conn.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	return value, err
}

func setSetting(ctx context.Context, conn *sql.DB, key, value string) error {
	_, err := conn.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	return err
}
