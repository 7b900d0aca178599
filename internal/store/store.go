// Package store is the persistent per-origin key/value store. It holds the
// sticky authentication mode flag, cached OAuth tokens, and the handoff
// records that let a secondary browser context finish an authentication
// started by another context.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Sentinel errors.
var (
	ErrNotFound = errors.New("store: not found")
	ErrExpired  = errors.New("store: handoff expired")
)

const (
	sqlGetValue = `SELECT value FROM kv WHERE origin = ? AND key = ?`

	sqlUpsertValue = `INSERT INTO kv (origin, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(origin, key) DO UPDATE SET
		 value = excluded.value,
		 updated_at = excluded.updated_at`

	sqlDeleteValue = `DELETE FROM kv WHERE origin = ? AND key = ?`

	sqlInsertHandoff = `INSERT INTO handoffs
		(id, origin, provider, mode, auth_url, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	sqlGetHandoff = `SELECT id, origin, provider, mode, auth_url, created_at, expires_at
		FROM handoffs WHERE id = ?`

	sqlDeleteHandoff = `DELETE FROM handoffs WHERE id = ?`

	sqlPurgeHandoffs = `DELETE FROM handoffs WHERE expires_at <= ?`
)

// Store is a SQLite-backed per-origin store. It is the sole writer to its
// database file (SetMaxOpenConns(1)) and is safe for concurrent use.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Open opens (creating if needed) the database at dbPath and runs
// migrations.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern: only one connection writes at a time.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("store opened", slog.String("db_path", dbPath))

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: closing database: %w", err)
	}

	return nil
}

// Get returns the value stored under key for origin. A missing key returns
// ErrNotFound.
func (s *Store) Get(ctx context.Context, origin, key string) (string, error) {
	var value string

	err := s.db.QueryRowContext(ctx, sqlGetValue, origin, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}

	if err != nil {
		return "", fmt.Errorf("store: reading %s: %w", key, err)
	}

	return value, nil
}

// Set stores value under key for origin, replacing any previous value.
func (s *Store) Set(ctx context.Context, origin, key, value string) error {
	if _, err := s.db.ExecContext(ctx, sqlUpsertValue, origin, key, value, s.nowFunc().UnixNano()); err != nil {
		return fmt.Errorf("store: writing %s: %w", key, err)
	}

	return nil
}

// Delete removes key for origin. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, origin, key string) error {
	if _, err := s.db.ExecContext(ctx, sqlDeleteValue, origin, key); err != nil {
		return fmt.Errorf("store: deleting %s: %w", key, err)
	}

	return nil
}
