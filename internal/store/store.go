// Package store provides SQLite storage for recorded tracking sessions.
package store

import (
	"database/sql"
	"fmt"

	"github.com/ayusman/depthview/internal/sensor"
	_ "modernc.org/sqlite"
)

// Store represents a SQLite database connection for recorded sessions.
type Store struct {
	db   *sql.DB
	path string
}

// New creates a new Store with the given database path.
// It opens the database connection, enables foreign keys, and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FrameCount returns the number of frames recorded for a session. A missing
// session is ErrNotFound.
func (s *Store) FrameCount(sessionID string) (int, error) {
	sess, err := s.Sessions().GetByID(sessionID)
	if err != nil {
		return 0, err
	}
	return sess.Frames, nil
}

// LoadFrame returns one frame of a session so the store can back a replay
// provider.
func (s *Store) LoadFrame(sessionID string, seq int) (*sensor.Frame, error) {
	return s.Frames().LoadAt(sessionID, seq)
}
