// Package store provides durable storage for notebooks, notes and images on
// SQLite (default) or PostgreSQL. Every mutation is a single statement; the
// schema carries the cascade rules (notebook → notes → images).
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

// Driver names a database/sql driver supported by the store.
type Driver string

const (
	SQLite   Driver = "sqlite3"
	Postgres Driver = "postgres"
)

//go:embed migrations
var migrations embed.FS

// goose keeps its dialect and base FS in package globals.
var migrateMu sync.Mutex

// DB wraps a sql.DB with note-store operations.
type DB struct {
	conn   *sql.DB
	driver Driver
	clock  *clock
}

// Option configures a DB.
type Option func(*DB)

// WithClock replaces the time source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(db *DB) {
		db.clock = newClock(now)
	}
}

// Open opens (or creates) the database and applies pending migrations.
// For SQLite, dsn is a file path; WAL, a busy timeout and foreign keys are
// switched on. For PostgreSQL dsn is passed to lib/pq unchanged.
func Open(driver Driver, dsn string, opts ...Option) (*DB, error) {
	switch driver {
	case SQLite:
		dsn = sqliteDSN(dsn)
	case Postgres:
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	conn, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := migrate(conn, driver); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	db := &DB{conn: conn, driver: driver, clock: newClock(time.Now)}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

func migrate(conn *sql.DB, driver Driver) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(string(driver)); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(conn, "migrations/"+string(driver)); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// rebind converts ? placeholders to $1, $2, ... for PostgreSQL.
func (db *DB) rebind(query string) string {
	if db.driver != Postgres {
		return query
	}
	var b strings.Builder
	n := 1
	for _, c := range query {
		if c == '?' {
			fmt.Fprintf(&b, "$%d", n)
			n++
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// clock hands out UTC timestamps that never go backwards, so repeated
// updates of one note have non-decreasing updated_at values.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newClock(now func() time.Time) *clock {
	return &clock{now: now}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
