// Package database provides connection management for the activity stores:
// PostgreSQL through pgx and SQLite through modernc.org/sqlite.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS activities (
	name             TEXT PRIMARY KEY,
	description      TEXT NOT NULL DEFAULT '',
	schedule         TEXT NOT NULL DEFAULT '',
	max_participants INTEGER NOT NULL,
	position         SERIAL
);

CREATE TABLE IF NOT EXISTS registrations (
	id            UUID PRIMARY KEY,
	activity_name TEXT NOT NULL REFERENCES activities(name) ON DELETE CASCADE,
	email         TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	UNIQUE (activity_name, email)
);

-- One activity per student.
CREATE UNIQUE INDEX IF NOT EXISTS registrations_email_key ON registrations (email);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS activities (
	name             TEXT PRIMARY KEY,
	description      TEXT NOT NULL DEFAULT '',
	schedule         TEXT NOT NULL DEFAULT '',
	max_participants INTEGER NOT NULL,
	position         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS registrations (
	id            TEXT PRIMARY KEY,
	activity_name TEXT NOT NULL REFERENCES activities(name) ON DELETE CASCADE,
	email         TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	UNIQUE (activity_name, email)
);

-- One activity per student.
CREATE UNIQUE INDEX IF NOT EXISTS registrations_email_key ON registrations (email);
`

// NewPool creates and validates a pgxpool connection pool.
// It retries up to 5 times to accommodate containers starting up.
func NewPool(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		logger.Warn("db_connect_retry", "attempt", attempt, "max_attempts", 5, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return pool, nil
}

// MigratePostgres creates the activity tables if they do not exist.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

// OpenSQLite opens the SQLite database at path with WAL mode, foreign keys
// and immediate write transactions, then applies the schema.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite unreachable: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return db, nil
}
