// Package store handles local SQLite persistence.
//
// Values are JSON documents stored under versioned string keys in a single
// key-value table. Reads never fail the caller: unreadable or corrupt values
// are logged and treated as absent.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ritimapp/ritim/internal/logx"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Storage keys.
const (
	KeyRecords        = "ritim.records.v2"
	KeyLegacyRecords  = "ritim.records"
	KeyExams          = "ritim.exams.v1"
	KeySettings       = "ritim.settings.v1"
	KeyTopicMoods     = "ritim.topics.v1"
	KeyOnboarding     = "ritim.onboarding.v1"
	KeyFavorites      = "ritim.coach.favorites.v1"
	KeyPendingInitial = "ritim.sync.pendingInitial.v1"
)

// Store wraps SQLite access for persisted app state.
type Store struct {
	db  *sql.DB
	log logx.Logger
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string, log logx.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Flushes from several containers may race; SQLite has a single writer.
	db.SetMaxOpenConns(1)
	if log == nil {
		log = logx.Discard{}
	}
	store := &Store{db: db, log: log, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the raw value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UTC().Format(time.RFC3339Nano))
	return err
}

// Remove deletes key. Missing keys are not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// loadJSON decodes the value under key. present is false when the key is
// missing, unreadable or corrupt; only a missing key reports missing=true.
func (s *Store) loadJSON(ctx context.Context, key string) (value any, present, missing bool) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		s.log.Warnf("failed to read %s: %v", key, err)
		return nil, false, false
	}
	if !ok {
		return nil, false, true
	}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		s.log.Warnf("ignoring corrupt value under %s: %v", key, err)
		return nil, false, false
	}
	return value, true, false
}

func (s *Store) saveJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
