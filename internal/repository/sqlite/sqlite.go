// Package sqlite implements the repository interfaces on top of SQLite.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs
// no C toolchain. One *DB implements every repository interface.
//
// LIVE UPDATES:
// Every write that commits publishes the collection paths it touched to a
// live.Publisher. Subscriptions in the live package re-run their queries on
// those signals, which is how a write reaches the feeds that show it.
// Publishing always happens after COMMIT, never inside a transaction.
//
// TIMES:
// All times are written in UTC with a fixed layout, so ORDER BY and range
// comparisons on time columns are plain string comparisons.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/maeuln/community/internal/live"

	// registers the "sqlite" driver with database/sql
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
	pub  live.Publisher
}

// New opens the database and runs migrations.
//
// dbPath examples:
//   - "data/maeul.db" → file-based database (persistent)
//   - ":memory:"      → in-memory database (tests)
//
// pub receives change topics after each committed write; nil disables
// publishing.
func New(dbPath string, pub live.Publisher) (*DB, error) {
	db, err := Open(dbPath, pub)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		db.conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Open opens the database without touching the schema.
func Open(dbPath string, pub live.Publisher) (*DB, error) {
	memory := dbPath == ":memory:"

	conn, err := sql.Open("sqlite", dsn(dbPath, memory))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is its own empty database, so an
	// in-memory pool must be a single connection.
	if memory {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	return &DB{conn: conn, pub: pub}, nil
}

// dsn builds the connection string. Pragmas are applied to every new
// connection the pool opens, not just the first.
func dsn(dbPath string, memory bool) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Set("_time_format", "sqlite")
	if !memory {
		params.Add("_pragma", "journal_mode(WAL)")
		params.Set("_txlock", "immediate")
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return "file:" + dbPath + sep + params.Encode()
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. The health endpoint uses it.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) publish(topics ...string) {
	if db.pub == nil || len(topics) == 0 {
		return
	}
	db.pub.Publish(topics...)
}

// withTx runs fn inside a transaction. fn must only use tx: with a single
// connection pool, touching db.conn inside fn would wait forever.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// clampLimit applies the default and maximum page size.
func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}
