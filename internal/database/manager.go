package database

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Manager owns the process-wide database connection. The connection is
// lazily opened on first use and cached for the process lifetime, and can be
// destructively recreated when the storage layer is faulted.
type Manager struct {
	path   string
	db     *DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewManager creates a manager for the database at path. The file is not
// opened until the first Conn call.
func NewManager(path string, logger zerolog.Logger) *Manager {
	return &Manager{
		path:   path,
		logger: logger.With().Str("component", "database").Logger(),
	}
}

// Conn returns the cached database connection, opening and migrating the
// database on first use.
func (m *Manager) Conn() (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connLocked()
}

func (m *Manager) connLocked() (*sql.DB, error) {
	if m.db != nil {
		return m.db.Conn(), nil
	}

	db, err := New(m.path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	m.db = db
	m.logger.Debug().Str("path", m.path).Msg("database opened")
	return db.Conn(), nil
}

// Recreate tears down the database file and builds a fresh one. This is the
// recovery path for a faulted storage layer: existing records are lost, but
// the store stays usable. Callers must surface the loss to the user.
func (m *Manager) Recreate() (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		m.logger.Warn().Str("path", m.path).Msg("recreating faulted database")
		m.db.Close()
		m.db = nil
	}

	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove faulted database: %w", err)
	}
	// WAL sidecar files go with it
	_ = os.Remove(m.path + "-wal")
	_ = os.Remove(m.path + "-shm")

	return m.connLocked()
}

// Migrate opens the database if needed and runs pending migrations.
func (m *Manager) Migrate() error {
	_, err := m.Conn()
	return err
}

// Close closes the database connection if open.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}
