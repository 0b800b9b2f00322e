// Package offline is the durable store of downloaded media blobs. Records
// are keyed by media id, created by the download pipeline and deleted only
// by explicit user action.
package offline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxmovies/maxmovies/internal/database"
	"github.com/maxmovies/maxmovies/internal/notification"
)

// ErrStorageFault wraps failures of the underlying storage layer.
var ErrStorageFault = errors.New("offline storage fault")

// Record is one stored download: metadata plus the assembled media blob.
type Record struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Poster    string    `json:"poster"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
	Blob      []byte    `json:"-"`
}

// Store is the SQLite-backed download store. The connection is opened
// lazily on first use. On a storage-layer fault the database is torn down
// and recreated: existing records are lost, the app stays usable, and the
// loss is surfaced through the notifier.
type Store struct {
	db       *database.Manager
	notifier notification.Notifier
	logger   zerolog.Logger
}

// NewStore creates an offline store over the shared database.
func NewStore(db *database.Manager, notifier notification.Notifier, logger zerolog.Logger) *Store {
	if notifier == nil {
		notifier = notification.Nop()
	}
	return &Store{
		db:       db,
		notifier: notifier,
		logger:   logger.With().Str("component", "offline").Logger(),
	}
}

// Put upserts a record. An existing record with the same id is overwritten.
func (s *Store) Put(ctx context.Context, record Record) error {
	return s.withRecovery(func(conn *sql.DB) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO downloads (media_id, title, poster, size_bytes, blob, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(media_id) DO UPDATE SET
				title = excluded.title,
				poster = excluded.poster,
				size_bytes = excluded.size_bytes,
				blob = excluded.blob,
				created_at = excluded.created_at`,
			record.ID, record.Title, record.Poster, int64(len(record.Blob)), record.Blob, time.Now().UTC())
		return err
	})
}

// Get returns one record including its blob, or sql.ErrNoRows via
// ErrStorageFault-free lookup miss.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var record *Record
	err := s.withRecovery(func(conn *sql.DB) error {
		row := conn.QueryRowContext(ctx, `
			SELECT media_id, title, poster, size_bytes, blob, created_at
			FROM downloads WHERE media_id = ?`, id)

		r := Record{}
		if err := row.Scan(&r.ID, &r.Title, &r.Poster, &r.SizeBytes, &r.Blob, &r.CreatedAt); err != nil {
			return err
		}
		record = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetAll returns every stored record, newest first. An uninitialized store
// yields an empty slice.
func (s *Store) GetAll(ctx context.Context) ([]Record, error) {
	var records []Record
	err := s.withRecovery(func(conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT media_id, title, poster, size_bytes, blob, created_at
			FROM downloads ORDER BY created_at DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			var r Record
			if err := rows.Scan(&r.ID, &r.Title, &r.Poster, &r.SizeBytes, &r.Blob, &r.CreatedAt); err != nil {
				return err
			}
			records = append(records, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// List returns record metadata without blobs, newest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	var records []Record
	err := s.withRecovery(func(conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT media_id, title, poster, size_bytes, created_at
			FROM downloads ORDER BY created_at DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			var r Record
			if err := rows.Scan(&r.ID, &r.Title, &r.Poster, &r.SizeBytes, &r.CreatedAt); err != nil {
				return err
			}
			records = append(records, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Delete removes a record if present; deleting a missing id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.withRecovery(func(conn *sql.DB) error {
		_, err := conn.ExecContext(ctx, `DELETE FROM downloads WHERE media_id = ?`, id)
		return err
	})
}

// Clear removes all records.
func (s *Store) Clear(ctx context.Context) error {
	return s.withRecovery(func(conn *sql.DB) error {
		_, err := conn.ExecContext(ctx, `DELETE FROM downloads`)
		return err
	})
}

// withRecovery runs op against the store. On a storage-layer fault it
// recreates the database once and retries; a second failure is returned
// wrapped in ErrStorageFault. Lookup misses pass through untouched.
func (s *Store) withRecovery(op func(conn *sql.DB) error) error {
	conn, err := s.db.Conn()
	if err == nil {
		err = op(conn)
		if err == nil || errors.Is(err, sql.ErrNoRows) {
			return err
		}
	}

	s.logger.Error().Err(err).Msg("offline store fault, recreating database")
	s.notifier.Notify("Offline storage was corrupted and has been reset. Stored downloads were lost.", notification.LevelError)

	conn, recreateErr := s.db.Recreate()
	if recreateErr != nil {
		return fmt.Errorf("%w: %v (recreate failed: %v)", ErrStorageFault, err, recreateErr)
	}

	if retryErr := op(conn); retryErr != nil && !errors.Is(retryErr, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrStorageFault, retryErr)
	} else if retryErr != nil {
		return retryErr
	}
	return nil
}
