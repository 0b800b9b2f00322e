// Package testutil provides testing utilities for integration tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/maxmovies/maxmovies/internal/database"
)

// TestDB wraps a migrated test database in a temp directory.
type TestDB struct {
	Manager *database.Manager
	Conn    *sql.DB
	Path    string
	Logger  zerolog.Logger
}

// NewTestDB creates a new test database under t.TempDir, runs migrations
// and returns a ready-to-use database. Cleanup is registered on t.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := NewTestLogger(t)

	manager := database.NewManager(dbPath, logger)
	conn, err := manager.Conn()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	return &TestDB{
		Manager: manager,
		Conn:    conn,
		Path:    dbPath,
		Logger:  logger,
	}
}

// NewTestLogger creates a test logger that outputs to t.Log.
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
}
