// Package remote talks to the shared backend database that mirrors student
// records for coaches.
package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ritimapp/ritim/internal/logx"
)

// DefaultDriver is the database/sql driver used for the backend.
const DefaultDriver = "postgres"

// Client is a backend connection.
type Client struct {
	db  *sqlx.DB
	log logx.Logger
	now func() time.Time
}

// Open connects to the backend and verifies the connection.
func Open(ctx context.Context, driver, dsn string, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("remote: empty data source name")
	}
	if driver == "" {
		driver = DefaultDriver
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect remote: %w", err)
	}
	return New(db, log), nil
}

// New wraps an existing connection.
func New(db *sqlx.DB, log logx.Logger) *Client {
	if log == nil {
		log = logx.Discard{}
	}
	return &Client{db: db, log: log, now: time.Now}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		active_track TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		updated_at_ms BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS daily_records (
		user_id TEXT NOT NULL,
		track_id TEXT NOT NULL,
		date TEXT NOT NULL,
		focus_minutes INTEGER NOT NULL,
		activity_type TEXT NOT NULL,
		question_count INTEGER,
		subject_breakdown TEXT,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at_ms BIGINT NOT NULL,
		PRIMARY KEY (user_id, track_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS exam_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		track_id TEXT NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		subject_key TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		correct_total INTEGER NOT NULL,
		wrong_total INTEGER NOT NULL,
		blank_total INTEGER NOT NULL,
		subject_scores TEXT,
		duration_minutes INTEGER,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		deleted_at_ms BIGINT,
		created_at_ms BIGINT NOT NULL,
		updated_at_ms BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_exam_records_user_date ON exam_records(user_id, date)`,
	`CREATE TABLE IF NOT EXISTS invite_codes (
		code TEXT PRIMARY KEY,
		coach_id TEXT NOT NULL,
		coach_name TEXT NOT NULL DEFAULT '',
		expires_at_ms BIGINT,
		max_uses INTEGER NOT NULL DEFAULT 1,
		uses INTEGER NOT NULL DEFAULT 0,
		revoked BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS coach_links (
		coach_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		created_at_ms BIGINT NOT NULL,
		PRIMARY KEY (coach_id, student_id)
	)`,
}

// Migrate creates the backend tables when they are missing.
func (c *Client) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate remote: %w", err)
		}
	}
	return nil
}

// rollback ends a failed transaction.
func rollback(tx *sqlx.Tx) {
	// Best-effort rollback.
	_ = tx.Rollback()
}

func (c *Client) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		rollback(tx)
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
