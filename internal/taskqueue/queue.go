package taskqueue

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Kind identifies what a dequeued task should do.
type Kind string

const (
	// KindExecuteJob runs one job; Task.JobID carries the job id.
	KindExecuteJob Kind = "execute_job"

	// Maintenance kinds are enqueued by the consumer's cron triggers so
	// that everything inside a consumer stays serialized on one loop.
	KindCheckQueued   Kind = "check_queued"
	KindCleanupStuck  Kind = "cleanup_stuck"
	KindSpawnHourly   Kind = "spawn_hourly"
	KindSpawnDaily    Kind = "spawn_daily"
	KindSchedulerTick Kind = "scheduler_tick"
)

// Task is one unit of work in a durable queue.
type Task struct {
	ID         string
	Kind       Kind
	JobID      string
	EnqueuedAt time.Time
}

// Queue is a durable FIFO backed by its own SQLite file. One consumer
// drains it; the server (and the worker itself, when chaining the next
// job) enqueues into it. Task ids are ULIDs, so lexical order is
// enqueue order.
type Queue struct {
	conn *sql.DB
	name string
}

// Open creates or opens the durable queue at the given path.
func Open(path, name string) (*Queue, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open task queue: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS task (
    id          TEXT PRIMARY KEY,
    kind        TEXT NOT NULL,
    job_id      TEXT NOT NULL DEFAULT '',
    enqueued_at DATETIME NOT NULL
);
`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Queue{conn: conn, name: name}, nil
}

// Close closes the queue's database connection.
func (q *Queue) Close() error {
	return q.conn.Close()
}

// Name returns the queue's name.
func (q *Queue) Name() string {
	return q.name
}

// Enqueue appends a task and returns its id.
func (q *Queue) Enqueue(kind Kind, jobID string) (string, error) {
	id := ulid.Make().String()
	_, err := q.conn.Exec(
		`INSERT INTO task (id, kind, job_id, enqueued_at) VALUES (?, ?, ?, ?)`,
		id, kind, jobID, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}
	return id, nil
}

// Dequeue removes and returns the oldest task, or nil when the queue is
// empty. Select-and-delete runs in one transaction, so a task is handed
// out at most once even with the server writing concurrently.
func (q *Queue) Dequeue() (*Task, error) {
	tx, err := q.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	task := &Task{}
	err = tx.QueryRow(
		`SELECT id, kind, job_id, enqueued_at FROM task ORDER BY id LIMIT 1`,
	).Scan(&task.ID, &task.Kind, &task.JobID, &task.EnqueuedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read task: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM task WHERE id = ?`, task.ID); err != nil {
		return nil, fmt.Errorf("failed to remove task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return task, nil
}

// Len returns the number of pending tasks.
func (q *Queue) Len() (int, error) {
	var n int
	if err := q.conn.QueryRow(`SELECT COUNT(*) FROM task`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}
