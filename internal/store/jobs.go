package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const jobColumns = `id, env_name, queue_name, name, type, command, meta,
       priority, status, pid, retry_count, created_at, recurrence, archived`

// Create inserts a new job.
func (s *Store) Create(job *Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Meta == nil {
		job.Meta = map[string]interface{}{}
	}
	if err := job.Validate(); err != nil {
		return err
	}

	meta, err := json.Marshal(job.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}

	query := `
		INSERT INTO job (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.conn.Exec(
		query,
		job.ID.String(),
		job.EnvName,
		job.QueueName,
		job.Name,
		job.Type,
		job.Command,
		string(meta),
		job.Priority,
		job.Status,
		job.PID,
		job.RetryCount,
		job.CreatedAt,
		job.Recurrence,
		job.Archived,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	s.emitJobsChanged()
	return nil
}

// Get retrieves a job by id. Returns ErrNotFound if it does not exist.
func (s *Store) Get(id uuid.UUID) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM job WHERE id = ?`
	job, err := scanJob(s.conn.QueryRow(query, id.String()))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// List returns jobs for an env, optionally restricted to one queue.
// Archived jobs are hidden unless includeArchived is set. Results are
// ordered by creation time.
func (s *Store) List(envName, queueName string, includeArchived bool) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM job WHERE env_name = ?`
	args := []interface{}{envName}

	if queueName != "" {
		query += ` AND queue_name = ?`
		args = append(args, queueName)
	}
	if !includeArchived {
		query += ` AND archived = 0`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}

	return jobs, nil
}

// CountFilter restricts Count. Zero-valued fields match everything.
type CountFilter struct {
	EnvName   string
	QueueName string
	Status    JobStatus
}

// Count returns the number of jobs matching the filter.
func (s *Store) Count(f CountFilter) (int, error) {
	query := `SELECT COUNT(*) FROM job WHERE 1=1`
	var args []interface{}

	if f.EnvName != "" {
		query += ` AND env_name = ?`
		args = append(args, f.EnvName)
	}
	if f.QueueName != "" {
		query += ` AND queue_name = ?`
		args = append(args, f.QueueName)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}

	var n int
	if err := s.conn.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return n, nil
}

// Update applies a partial patch to a job. Status changes are validated
// against the transition graph; recurrence templates never advance past
// queued. Returns the updated row.
func (s *Store) Update(id uuid.UUID, patch JobUpdate) (*Job, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanJob(tx.QueryRow(`SELECT `+jobColumns+` FROM job WHERE id = ?`, id.String()))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	if patch.Status != nil && *patch.Status != current.Status {
		if !patch.Status.Valid() {
			return nil, &ValidationError{Msg: "invalid status: " + string(*patch.Status)}
		}
		if !CanTransition(current.Status, *patch.Status) {
			return nil, &TransitionError{From: current.Status, To: *patch.Status}
		}
		if current.IsTemplate() && *patch.Status != StatusQueued && *patch.Status != StatusCancelled {
			return nil, &ValidationError{Msg: "recurrence templates never execute directly"}
		}
	}

	var sets []string
	var args []interface{}
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if patch.EnvName != nil {
		add("env_name", *patch.EnvName)
	}
	if patch.QueueName != nil {
		add("queue_name", *patch.QueueName)
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Command != nil {
		add("command", *patch.Command)
	}
	if patch.Meta != nil {
		meta, err := json.Marshal(patch.Meta)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal meta: %w", err)
		}
		add("meta", string(meta))
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, &ValidationError{Msg: "invalid priority: " + string(*patch.Priority)}
		}
		add("priority", *patch.Priority)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.ClearPID {
		add("pid", nil)
	} else if patch.PID != nil {
		add("pid", *patch.PID)
	}
	if patch.RetryCount != nil {
		add("retry_count", *patch.RetryCount)
	}
	if patch.Recurrence != nil {
		if *patch.Recurrence == "" {
			add("recurrence", nil)
		} else {
			add("recurrence", *patch.Recurrence)
		}
	}
	if patch.Archived != nil {
		add("archived", *patch.Archived)
	}

	if len(sets) > 0 {
		query := `UPDATE job SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
		args = append(args, id.String())
		if _, err := tx.Exec(query, args...); err != nil {
			return nil, fmt.Errorf("failed to update job: %w", err)
		}
	}

	updated, err := scanJob(tx.QueryRow(`SELECT `+jobColumns+` FROM job WHERE id = ?`, id.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to reload job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	s.emitJobsChanged()
	return updated, nil
}

// UpdateStatus transitions a job to the given status. Shorthand over
// Update for the common lifecycle mutations.
func (s *Store) UpdateStatus(id uuid.UUID, status JobStatus) (*Job, error) {
	return s.Update(id, JobUpdate{Status: &status})
}

// Delete removes a job. Returns ErrNotFound for unknown ids.
func (s *Store) Delete(id uuid.UUID) error {
	result, err := s.conn.Exec(`DELETE FROM job WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.emitJobsChanged()
	return nil
}

// Claim performs the conditional queued -> running transition that hands
// a job to a worker. The single guarded UPDATE makes the claim atomic:
// if the observed status was not queued (or the job is a recurrence
// template) no row changes and ErrStaleTransition is returned.
func (s *Store) Claim(id uuid.UUID) (*Job, error) {
	result, err := s.conn.Exec(
		`UPDATE job SET status = ? WHERE id = ? AND status = ? AND recurrence IS NULL`,
		StatusRunning, id.String(), StatusQueued,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(id); err != nil {
			return nil, err
		}
		return nil, ErrStaleTransition
	}

	job, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	s.emitJobsChanged()
	return job, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job     Job
		idStr   string
		metaStr string
	)
	err := row.Scan(
		&idStr,
		&job.EnvName,
		&job.QueueName,
		&job.Name,
		&job.Type,
		&job.Command,
		&metaStr,
		&job.Priority,
		&job.Status,
		&job.PID,
		&job.RetryCount,
		&job.CreatedAt,
		&job.Recurrence,
		&job.Archived,
	)
	if err != nil {
		return nil, err
	}

	job.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid job id %q: %w", idStr, err)
	}
	if err := json.Unmarshal([]byte(metaStr), &job.Meta); err != nil {
		return nil, fmt.Errorf("invalid meta for job %s: %w", idStr, err)
	}

	return &job, nil
}
