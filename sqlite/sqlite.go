// Package sqlite implements the storage repositories on a local SQLite
// database. It backs the standalone run mode and the test suite; the
// postgres package provides the same contracts for production.
package sqlite

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite" // sqlite driver
)

// Store implements models.IntegrationRepository, models.TaskRepository
// and models.MirrorRepository on a single SQLite file.
type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := initDatabase(path)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func initDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, err
		}
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return db, nil
}

func createSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS user_integrations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	provider TEXT NOT NULL,
	access_token BLOB,
	refresh_token BLOB,
	token_expires_at INTEGER,
	sync_token TEXT NOT NULL DEFAULT '',
	last_synced_at INTEGER,
	metadata TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	UNIQUE (user_id, provider)
);

CREATE TABLE IF NOT EXISTS sync_queue (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	integration_type TEXT NOT NULL,
	operation TEXT NOT NULL,
	payload TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 5,
	status TEXT NOT NULL DEFAULT 'pending',
	attempts INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	scheduled_at INTEGER NOT NULL,
	completed_at INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_queue_eligible
	ON sync_queue (status, scheduled_at, priority, created_at);

CREATE TABLE IF NOT EXISTS calendar_events (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	external_event_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	start_time INTEGER NOT NULL,
	end_time INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'confirmed',
	updated_at INTEGER NOT NULL,
	UNIQUE (user_id, external_event_id)
);

CREATE TABLE IF NOT EXISTS slack_channels (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	workspace_id TEXT NOT NULL,
	channel_id TEXT NOT NULL,
	channel_name TEXT NOT NULL,
	is_private INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL,
	UNIQUE (user_id, workspace_id, channel_id)
);

CREATE TABLE IF NOT EXISTS notion_databases (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	database_id TEXT NOT NULL,
	title TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	UNIQUE (user_id, database_id)
);

CREATE TABLE IF NOT EXISTS food_orders (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	external_id TEXT NOT NULL,
	provider_name TEXT NOT NULL,
	restaurant_id TEXT NOT NULL,
	status TEXT NOT NULL,
	total_amount REAL NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	UNIQUE (user_id, external_id)
);

CREATE TABLE IF NOT EXISTS ride_bookings (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	external_id TEXT NOT NULL,
	provider_name TEXT NOT NULL,
	pickup TEXT NOT NULL,
	dropoff TEXT NOT NULL,
	status TEXT NOT NULL,
	fare REAL NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	UNIQUE (user_id, external_id)
);
`

	_, err := db.Exec(schema)

	return err
}

type scannable interface {
	Scan(dest ...any) error
}

// nanos converts a time to the integer representation stored in SQLite.
// Nanosecond precision keeps FIFO ordering stable for rows created
// within the same second.
func nanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullableNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: nanos(*t), Valid: true}
}

func fromNullableNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}

	t := fromNanos(n.Int64)

	return &t
}
