// Package mirror is the device-local copy of application state.
//
// The mirror is an embedded SQLite database holding a handful of named
// opaque payloads:
//
//   - tasks:           the last task list the app displayed
//   - pending_actions: the sync queue, in enqueue order
//   - team_members:    the last member list fetched from the remote store
//
// Each payload is overwritten as a whole. Writes are optimistic: a failed
// save is logged and reported, but the previous payload stays intact and
// callers carry on. Loads never fail; a missing or corrupt payload reads
// as empty.
//
// Several processes may share one mirror (the daemon and short-lived CLI
// invocations). Every save bumps a revision counter; Reload hands back the
// persisted copies when another process saved since this Store last read
// or wrote them. Lock takes an exclusive lock on a file next to the
// database so that read-modify-write cycles do not interleave.
package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	log "github.com/sirupsen/logrus"

	"github.com/honesthomesales/TODO/internal/appstate"
	"github.com/honesthomesales/TODO/internal/types"
)

// Blob names.
const (
	BlobTasks   = "tasks"
	BlobQueue   = "pending_actions"
	BlobMembers = "team_members"
)

// Store wraps the mirror database.
type Store struct {
	conn *sql.DB
	path string
	log  *log.Entry

	lock *os.File
	// seen is the revision this Store last read or wrote.
	seen atomic.Int64
}

var _ appstate.Shared = (*Store)(nil)

// Open opens (creating if needed) the mirror database at path.
//
// The database runs in WAL mode with a busy timeout so the daemon and
// short-lived CLI processes can share it. The caller must Close it.
func Open(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping mirror: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{
		conn: conn,
		path: path,
		log:  logger.WithField("component", "mirror"),
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if _, err := conn.Exec(`
	CREATE TABLE IF NOT EXISTS blobs (
		name TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize mirror schema: %w", err)
	}
	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value INTEGER NOT NULL)`); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize mirror schema: %w", err)
	}
	if _, err := conn.Exec(`INSERT OR IGNORE INTO meta (key, value) VALUES ('revision', 0)`); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize mirror revision: %w", err)
	}

	lf, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to open mirror lock: %w", err)
	}
	s.lock = lf

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes the database.
func (s *Store) Close() error {
	if s.lock != nil {
		_ = s.lock.Close()
		s.lock = nil
	}
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.log.WithError(err).Warn("failed to checkpoint WAL")
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close mirror: %w", err)
	}
	s.conn = nil
	return nil
}

// SaveTasks overwrites the persisted task list.
func (s *Store) SaveTasks(ctx context.Context, tasks []types.Task) error {
	if tasks == nil {
		tasks = []types.Task{}
	}
	return s.save(ctx, BlobTasks, tasks)
}

// LoadTasks returns the persisted task list, or an empty slice.
func (s *Store) LoadTasks(ctx context.Context) []types.Task {
	return load[types.Task](ctx, s, BlobTasks)
}

// SaveQueue overwrites the persisted pending action queue.
func (s *Store) SaveQueue(ctx context.Context, actions []types.PendingAction) error {
	if actions == nil {
		actions = []types.PendingAction{}
	}
	return s.save(ctx, BlobQueue, actions)
}

// LoadQueue returns the persisted pending action queue, or an empty slice.
func (s *Store) LoadQueue(ctx context.Context) []types.PendingAction {
	return load[types.PendingAction](ctx, s, BlobQueue)
}

// SaveMembers overwrites the cached team member list.
func (s *Store) SaveMembers(ctx context.Context, members []types.TeamMember) error {
	if members == nil {
		members = []types.TeamMember{}
	}
	return s.save(ctx, BlobMembers, members)
}

// LoadMembers returns the cached team member list, or an empty slice.
func (s *Store) LoadMembers(ctx context.Context) []types.TeamMember {
	return load[types.TeamMember](ctx, s, BlobMembers)
}

// BlobInfo describes one stored payload.
type BlobInfo struct {
	Name      string
	Size      int
	UpdatedAt time.Time
}

// Info lists the stored payloads.
func (s *Store) Info(ctx context.Context) ([]BlobInfo, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT name, length(payload), updated_at FROM blobs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query blobs: %w", err)
	}
	defer rows.Close()

	var out []BlobInfo
	for rows.Next() {
		var bi BlobInfo
		var updated string
		if err := rows.Scan(&bi.Name, &bi.Size, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan blob row: %w", err)
		}
		bi.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, bi)
	}
	return out, rows.Err()
}

func (s *Store) save(ctx context.Context, name string, v any) error {
	payload, err := sonic.Marshal(v)
	if err != nil {
		s.log.WithError(err).WithField("blob", name).Error("failed to encode mirror payload")
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if s.conn == nil {
		err := errors.New("mirror is closed")
		s.log.WithError(err).WithField("blob", name).Error("failed to save mirror payload")
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		s.log.WithError(err).WithField("blob", name).Error("failed to save mirror payload")
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `
	INSERT INTO blobs (name, payload, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		payload = excluded.payload,
		updated_at = excluded.updated_at
	`, name, string(payload), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		s.log.WithError(err).WithField("blob", name).Error("failed to save mirror payload")
		return fmt.Errorf("failed to save %s: %w", name, err)
	}

	var rev int64
	if err = tx.QueryRowContext(ctx, `UPDATE meta SET value = value + 1 WHERE key = 'revision' RETURNING value`).Scan(&rev); err != nil {
		s.log.WithError(err).WithField("blob", name).Error("failed to bump mirror revision")
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	if err = tx.Commit(); err != nil {
		s.log.WithError(err).WithField("blob", name).Error("failed to save mirror payload")
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	s.seen.Store(rev)
	return nil
}

// Revision returns the number of saves made to the mirror by any process.
func (s *Store) Revision(ctx context.Context) (int64, error) {
	if s.conn == nil {
		return 0, errors.New("mirror is closed")
	}
	var rev int64
	if err := s.conn.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'revision'`).Scan(&rev); err != nil {
		return 0, fmt.Errorf("failed to read mirror revision: %w", err)
	}
	return rev, nil
}

// Reload returns the persisted tasks, queue and members when the mirror
// was saved since this Store last read or wrote it. It implements
// appstate.Shared.
func (s *Store) Reload() (appstate.Snapshot, bool) {
	ctx := context.Background()
	rev, err := s.Revision(ctx)
	if err != nil {
		s.log.WithError(err).Warn("failed to check mirror revision")
		return appstate.Snapshot{}, false
	}
	if rev == s.seen.Load() {
		return appstate.Snapshot{}, false
	}
	snap := appstate.Snapshot{
		Tasks:   s.LoadTasks(ctx),
		Pending: s.LoadQueue(ctx),
		Members: s.LoadMembers(ctx),
	}
	s.seen.Store(rev)
	s.log.WithField("revision", rev).Debug("reloaded mirror")
	return snap, true
}

// Lock blocks until this process holds the mirror's exclusive lock. The
// returned func releases it. It implements appstate.Shared.
func (s *Store) Lock() (func(), error) {
	f := s.lock
	if f == nil {
		return nil, errors.New("mirror is closed")
	}
	if err := lockFile(f); err != nil {
		return nil, fmt.Errorf("failed to lock mirror: %w", err)
	}
	return func() {
		if err := unlockFile(f); err != nil {
			s.log.WithError(err).Warn("failed to unlock mirror")
		}
	}, nil
}

func load[T any](ctx context.Context, s *Store, name string) []T {
	out := []T{}
	if s.conn == nil {
		return out
	}

	var payload string
	err := s.conn.QueryRowContext(ctx, `SELECT payload FROM blobs WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return out
	}
	if err != nil {
		s.log.WithError(err).WithField("blob", name).Warn("failed to read mirror payload")
		return out
	}

	var decoded []T
	if err := sonic.UnmarshalString(payload, &decoded); err != nil {
		s.log.WithError(err).WithField("blob", name).Warn("discarding unparsable mirror payload")
		return out
	}
	if decoded == nil {
		return out
	}
	return decoded
}
