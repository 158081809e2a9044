package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Dialect captures what differs between the production store (postgres)
// and the local one (sqlite).
type Dialect struct {
	Name   string
	Driver string
	// InsertionOrder is the column that breaks ordering ties by insert order.
	InsertionOrder string
	Schema         []string
}

var Postgres = Dialect{
	Name:           "postgres",
	Driver:         "postgres",
	InsertionOrder: "seq",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			timestamp TEXT,
			datetime TEXT,
			content TEXT
		)`,
		`ALTER TABLE posts ADD COLUMN IF NOT EXISTS seq BIGSERIAL`,
		`CREATE TABLE IF NOT EXISTS poems (
			id TEXT PRIMARY KEY,
			words TEXT,
			poem TEXT,
			created_at TIMESTAMP DEFAULT now()
		)`,
		`ALTER TABLE poems ADD COLUMN IF NOT EXISTS seq BIGSERIAL`,
		`CREATE INDEX IF NOT EXISTS poems_words_idx ON poems (words, created_at DESC)`,
	},
}

var SQLite = Dialect{
	Name:           "sqlite",
	Driver:         "sqlite3",
	InsertionOrder: "rowid",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			timestamp TEXT,
			datetime TEXT,
			content TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS poems (
			id TEXT PRIMARY KEY,
			words TEXT,
			poem TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS poems_words_idx ON poems (words, created_at DESC)`,
	},
}

// Resolve maps a database URL onto a dialect and a driver DSN.
// postgres:// and postgresql:// go to lib/pq; sqlite://path and file: go
// to go-sqlite3.
func Resolve(databaseURL string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return Postgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		if path == "" {
			return Dialect{}, "", fmt.Errorf("sqlite url %q has no path", databaseURL)
		}
		return SQLite, path + "?_busy_timeout=5000", nil
	case strings.HasPrefix(databaseURL, "file:"):
		return SQLite, databaseURL, nil
	}
	return Dialect{}, "", fmt.Errorf("unsupported database url scheme in %q", databaseURL)
}

// SQLOpener returns an Opener backed by database/sql.
func SQLOpener(dialect Dialect, dsn string) Opener {
	return func(ctx context.Context) (Conn, error) {
		db, err := sql.Open(dialect.Driver, dsn)
		if err != nil {
			return nil, err
		}

		if dialect.Driver == SQLite.Driver {
			db.SetMaxOpenConns(1)
			db.SetMaxIdleConns(1)
		} else {
			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(30 * time.Minute)
		}
		return db, nil
	}
}

// Open builds a gateway for databaseURL. No connection is made until the
// first statement runs.
func Open(databaseURL string, timeout time.Duration) (*Gateway, error) {
	dialect, dsn, err := Resolve(databaseURL)
	if err != nil {
		return nil, err
	}
	return NewGateway(SQLOpener(dialect, dsn), dialect, timeout), nil
}

func Migrate(ctx context.Context, g *Gateway) error {
	for _, stmt := range g.Dialect().Schema {
		if _, err := g.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// MigrateUntilReady applies the schema, waiting interval between tries while
// the database is unavailable. Any other error, or ctx ending, stops it.
func MigrateUntilReady(ctx context.Context, g *Gateway, interval time.Duration) error {
	for {
		err := Migrate(ctx, g)
		if err == nil || !errors.Is(err, ErrUnavailable) {
			return err
		}
		slog.Warn("database unavailable, schema not applied yet", "retry_in", interval, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
