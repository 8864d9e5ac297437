// Package histdb is an optional sqlite mirror of a peer's in-memory task
// history, kept for queryable statistics across restarts. The in-memory
// ring buffer (internal/fabcache) remains the single source of truth;
// this package is additive and never consulted on the hot path.
package histdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/adrg/xdg"
)

// Config controls whether and where the history mirror is persisted.
type Config struct {
	Enabled bool
	Path    string
}

// DefaultConfig returns a disabled-by-default config rooted under the
// XDG data directory, matching the teacher's own xdg-based path choice.
func DefaultConfig() Config {
	return Config{Enabled: false, Path: defaultPath()}
}

func defaultPath() string {
	path, err := xdg.DataFile(filepath.Join("fabric", "history.db"))
	if err != nil {
		return filepath.Join(os.TempDir(), "fabric-history.db")
	}
	return path
}

// Entry mirrors a single completed task, matching internal/fabcache.HistoryEntry.
type Entry struct {
	ID        string
	Type      string
	Status    string
	Role      string
	StartedAt time.Time
	Duration  time.Duration
	Error     string
}

// Store wraps a single-writer sqlite connection. It is safe for concurrent
// use; GetDB is deliberately not exposed — every access goes through a
// package method that takes the internal lock.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open initializes (or no-ops, if cfg.Enabled is false) the history mirror.
func Open(cfg Config) (*Store, error) {
	if !cfg.Enabled {
		return &Store{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("histdb: create data dir: %w", err)
	}
	dsn := fmt.Sprintf("%s?_journal=WAL&_timeout=5000", cfg.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("histdb: open: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite is single-writer; avoid SQLITE_BUSY storms

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("histdb: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS history (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	status     TEXT NOT NULL,
	role       TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL,
	error      TEXT
);
CREATE INDEX IF NOT EXISTS idx_history_started_at ON history(started_at);
`

// enabled reports whether this store is backed by an open database.
func (s *Store) enabled() bool {
	return s != nil && s.db != nil
}

// Append mirrors one history entry. No-op if the store is disabled.
func (s *Store) Append(e Entry) error {
	if !s.enabled() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO history (id, type, status, role, started_at, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Type, e.Status, e.Role, e.StartedAt, e.Duration.Milliseconds(), e.Error,
	)
	return err
}

// Recent returns up to limit most recent entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if !s.enabled() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, type, status, role, started_at, duration_ms, error
		 FROM history ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var durMs int64
		if err := rows.Scan(&e.ID, &e.Type, &e.Status, &e.Role, &e.StartedAt, &durMs, &e.Error); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(durMs) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Cleanup deletes entries older than retentionDays.
func (s *Store) Cleanup(retentionDays int) error {
	if !s.enabled() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	_, err := s.db.Exec(`DELETE FROM history WHERE started_at < ?`, cutoff)
	return err
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if !s.enabled() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
