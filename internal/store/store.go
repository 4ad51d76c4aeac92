package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sadopc/streakr/internal/timeutil"
	_ "modernc.org/sqlite"
)

const currentVersion = 1

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository method
// can run either standalone or inside WithinTx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)

type Store struct {
	db    *sql.DB
	q     DBTX
	inTx  bool
	clock timeutil.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for record timestamps and day keys.
func WithClock(c timeutil.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string, opts ...Option) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, q: db, clock: timeutil.SystemClock{}}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory(opts ...Option) (*Store, error) {
	return New(":memory:", opts...)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithinTx runs fn against a transaction-scoped Store. Any error returned by
// fn rolls back every write made through the tx Store. Nested calls reuse the
// outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Store{db: s.db, q: tx, inTx: true, clock: s.clock}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return persistErr("commit transaction", err)
	}
	return nil
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS tasks (
		id                     TEXT PRIMARY KEY,
		title                  TEXT NOT NULL,
		description            TEXT NOT NULL DEFAULT '',
		estimated_minutes      INTEGER NOT NULL DEFAULT 0,
		actual_minutes         INTEGER NOT NULL DEFAULT 0,
		priority               TEXT NOT NULL DEFAULT 'medium',
		categories             TEXT NOT NULL DEFAULT '[]',
		tags                   TEXT NOT NULL DEFAULT '[]',
		status                 TEXT NOT NULL DEFAULT 'not_started',
		created_at             TEXT NOT NULL,
		started_at             TEXT,
		completed_at           TEXT,
		pending_from_yesterday INTEGER NOT NULL DEFAULT 0,
		scheduled_date         TEXT NOT NULL DEFAULT '',
		scheduled_time_block   TEXT NOT NULL DEFAULT '',
		updated_at             TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_status    ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_priority  ON tasks(priority);
	CREATE INDEX IF NOT EXISTS idx_tasks_scheduled ON tasks(scheduled_date);

	CREATE TABLE IF NOT EXISTS time_logs (
		id               TEXT PRIMARY KEY,
		task_id          TEXT NOT NULL REFERENCES tasks(id),
		start_time       TEXT NOT NULL,
		end_time         TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_logs_task  ON time_logs(task_id);
	CREATE INDEX IF NOT EXISTS idx_logs_start ON time_logs(start_time);

	CREATE TABLE IF NOT EXISTS daily_stats (
		key             TEXT PRIMARY KEY,
		tasks_completed INTEGER NOT NULL DEFAULT 0,
		focus_minutes   INTEGER NOT NULL DEFAULT 0,
		break_minutes   INTEGER NOT NULL DEFAULT 0,
		xp              INTEGER NOT NULL DEFAULT 0,
		achievements    TEXT NOT NULL DEFAULT '[]',
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS weekly_stats (
		key             TEXT PRIMARY KEY,
		tasks_completed INTEGER NOT NULL DEFAULT 0,
		focus_minutes   INTEGER NOT NULL DEFAULT 0,
		break_minutes   INTEGER NOT NULL DEFAULT 0,
		xp              INTEGER NOT NULL DEFAULT 0,
		achievements    TEXT NOT NULL DEFAULT '[]',
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS streak (
		id                   INTEGER PRIMARY KEY CHECK (id = 1),
		current_streak       INTEGER NOT NULL DEFAULT 0,
		longest_streak       INTEGER NOT NULL DEFAULT 0,
		last_completion_date TEXT,
		total_days_active    INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS settings (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		data       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}
