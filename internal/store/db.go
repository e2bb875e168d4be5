package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/mpreston/jobq/internal/events"
)

// Store wraps the SQLite connection holding the job and jobscheduler
// tables. Every successful mutation publishes a snapshot event on the bus.
type Store struct {
	conn *sql.DB
	env  string
	bus  *events.Bus
}

// Open creates or opens the relational database at the given path.
// It enables WAL mode and a busy timeout, and runs migrations.
// A nil bus disables snapshot events.
func Open(path, envName string, bus *events.Bus) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writers from the server and every consumer share this file.
	// WAL keeps readers unblocked; the busy timeout retries transient
	// lock errors instead of surfacing them.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &Store{conn: conn, env: envName, bus: bus}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnvName returns the environment this store was opened for.
func (s *Store) EnvName() string {
	return s.env
}

// migrate creates or updates the database schema.
func (s *Store) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS job (
    id           TEXT PRIMARY KEY,
    env_name     TEXT NOT NULL,
    queue_name   TEXT NOT NULL DEFAULT 'default',
    name         TEXT NOT NULL DEFAULT '',
    type         TEXT NOT NULL,
    command      TEXT NOT NULL DEFAULT '',
    meta         TEXT NOT NULL DEFAULT '{}',
    priority     TEXT NOT NULL DEFAULT 'normal',
    status       TEXT NOT NULL DEFAULT 'pending',
    pid          INTEGER,
    retry_count  INTEGER NOT NULL DEFAULT 0,
    created_at   DATETIME NOT NULL,
    recurrence   TEXT,
    archived     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS jobscheduler (
    id                   TEXT PRIMARY KEY,
    env_name             TEXT NOT NULL,
    name                 TEXT NOT NULL DEFAULT '',
    description          TEXT NOT NULL DEFAULT '',
    trigger_type         TEXT NOT NULL,
    repeat_every_seconds INTEGER,
    job_template         TEXT NOT NULL DEFAULT '{}',
    enabled              INTEGER NOT NULL DEFAULT 1,
    last_run             INTEGER
);

CREATE INDEX IF NOT EXISTS idx_job_env ON job(env_name);
CREATE INDEX IF NOT EXISTS idx_job_status ON job(status);
CREATE INDEX IF NOT EXISTS idx_job_queue ON job(queue_name, status);
CREATE INDEX IF NOT EXISTS idx_jobscheduler_env ON jobscheduler(env_name);
`

	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// emitJobsChanged publishes the current non-archived snapshot for the
// store's env. Broadcast is fire-and-forget; failures never reach the
// mutating caller.
func (s *Store) emitJobsChanged() {
	if s.bus == nil {
		return
	}
	jobs, err := s.List(s.env, "", false)
	if err != nil {
		return
	}
	s.bus.Publish(events.Event{Type: events.JobsChanged, Payload: jobs})
}
