// Package store reads and updates a study collection kept in SQLite.
//
// The collection holds notes, cards and the review log, plus the day
// rollover setting. leechkit keeps its own bookkeeping of tag and flag
// changes in tables prefixed with leechkit_ so that every write can be
// undone.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Sentinel errors returned by Store methods. Use errors.Is to check.
var (
	ErrNotInitialized = errors.New("store: collection not initialized (missing tables); check the --collection path")
	ErrCardNotFound   = errors.New("store: card not found")
	ErrRunNotFound    = errors.New("store: run not found")
	ErrRunReverted    = errors.New("store: run already reverted")
)

// Store provides SQLite database operations on a collection.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the specified database path.
// Use ":memory:" for in-memory databases (useful for testing).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool defaults
	db.SetMaxOpenConns(1) // SQLite only allows one writer at a time
	db.SetMaxIdleConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// The host application may hold the collection open; wait for its lock
	// instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database connection for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateSchema creates the collection tables and the run bookkeeping tables.
// Existing tables are left untouched.
func (s *Store) CreateSchema() error {
	if _, err := s.db.Exec(collectionSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return s.CreateRunSchema()
}

// CreateRunSchema creates only the leechkit_ bookkeeping tables. It is safe
// to call on a collection owned by another application.
func (s *Store) CreateRunSchema() error {
	if _, err := s.db.Exec(runSchema); err != nil {
		return fmt.Errorf("failed to create run schema: %w", err)
	}
	return nil
}

// notInitialized maps SQLite's missing-table error to ErrNotInitialized and
// passes every other error through.
func notInitialized(err error) error {
	if err != nil && strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}
	return err
}
