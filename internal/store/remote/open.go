package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	log "github.com/sirupsen/logrus"
	_ "github.com/tursodatabase/go-libsql"
)

// Driver names registered by the imported database drivers.
const (
	DriverLibSQL = "libsql"
	DriverSQLite = "sqlite3"
)

// DB is the remote store over database/sql.
type DB struct {
	conn   *sql.DB
	driver string
	log    *log.Entry

	schemaReady atomic.Bool
	closed      atomic.Bool
}

// ErrClosed is returned by Ping and InitSchemaContext after Close.
// Other methods fail with database/sql's closed-pool error.
var ErrClosed = errors.New("remote store is closed")

// Open connects to the remote store described by dsn and creates the
// schema if it doesn't exist.
//
// DSNs starting with libsql://, https://, http:// or wss:// are opened
// with the libSQL driver; authToken, when set, is added as the authToken
// query parameter. Anything else is treated as the path of a local SQLite
// file, which is handy for development and tests.
//
// Example:
//
//	store, err := remote.Open("libsql://team-todo.turso.io", token, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(dsn, authToken string, logger *log.Logger) (*DB, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	driver, source, err := resolveDSN(dsn, authToken)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote store: %w", err)
	}

	db := &DB{
		conn:   conn,
		driver: driver,
		log:    logger.WithFields(log.Fields{"component": "remote", "driver": driver}),
	}

	if driver == DriverSQLite {
		conn.SetMaxOpenConns(4)
		conn.SetConnMaxLifetime(5 * time.Minute)
		for _, p := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout=5000",
			"PRAGMA foreign_keys=ON",
		} {
			if _, err := conn.Exec(p); err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", p, err)
			}
		}
	}

	if err := db.InitSchemaContext(context.Background()); err != nil {
		// A network store may simply be unreachable right now; the first
		// successful Ping creates the schema instead.
		if driver != DriverLibSQL {
			_ = conn.Close()
			return nil, err
		}
		db.log.WithError(err).Warn("remote store unreachable at open, schema check deferred")
	}

	return db, nil
}

// resolveDSN picks the driver for dsn and builds its data source name.
func resolveDSN(dsn, authToken string) (driver, source string, err error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", "", fmt.Errorf("remote store DSN is empty")
	}

	for _, scheme := range []string{"libsql://", "https://", "http://", "wss://"} {
		if !strings.HasPrefix(dsn, scheme) {
			continue
		}
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("invalid remote store URL: %w", err)
		}
		if authToken != "" {
			q := u.Query()
			if q.Get("authToken") == "" {
				q.Set("authToken", authToken)
				u.RawQuery = q.Encode()
			}
		}
		return DriverLibSQL, u.String(), nil
	}

	path := strings.TrimPrefix(dsn, "file:")
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", "", fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return DriverSQLite, "file:" + path, nil
}

// Driver returns the database/sql driver in use.
func (db *DB) Driver() string {
	return db.driver
}

// RawDB returns the underlying connection pool.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close closes the connection pool. The pool is kept so that calls racing
// with shutdown, such as a prober tick, fail instead of panicking. Close
// is safe to call more than once.
func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close remote store: %w", err)
	}
	return nil
}

// Ping implements TaskStore.Ping with a round trip query, which a pooled
// connection cannot answer from cache.
func (db *DB) Ping(ctx context.Context) error {
	if db.closed.Load() {
		return fmt.Errorf("remote store unreachable: %w", ErrClosed)
	}
	if !db.schemaReady.Load() {
		if err := db.InitSchemaContext(ctx); err != nil {
			return fmt.Errorf("remote store unreachable: %w", err)
		}
	}
	var one int
	if err := db.conn.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("remote store unreachable: %w", err)
	}
	return nil
}

// InitSchemaContext creates the remote tables if they don't exist.
// It is idempotent.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	if db.closed.Load() {
		return ErrClosed
	}
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	db.schemaReady.Store(true)
	return nil
}

// schemaStatements are executed one per Exec.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS todos (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'todo',
		due_date TEXT,
		priority TEXT NOT NULL DEFAULT 'Medium',
		manual_order INTEGER NOT NULL DEFAULT 0,
		assignee TEXT,
		created_at TEXT,
		completed_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS team_members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		push_token TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		task_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		detail TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_todos_manual_order ON todos(manual_order)`,
	`CREATE INDEX IF NOT EXISTS idx_todos_assignee ON todos(assignee)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_task ON comments(task_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_task ON activities(task_id, created_at)`,
}
