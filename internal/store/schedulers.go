package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const schedulerColumns = `id, env_name, name, description, trigger_type,
       repeat_every_seconds, job_template, enabled, last_run`

// CreateScheduler inserts a new job scheduler.
func (s *Store) CreateScheduler(sched *JobScheduler) error {
	if sched.ID == uuid.Nil {
		sched.ID = uuid.New()
	}
	if sched.JobTemplate == nil {
		sched.JobTemplate = map[string]interface{}{}
	}
	if err := sched.Validate(); err != nil {
		return err
	}

	tmpl, err := json.Marshal(sched.JobTemplate)
	if err != nil {
		return fmt.Errorf("failed to marshal job template: %w", err)
	}

	query := `
		INSERT INTO jobscheduler (` + schedulerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.conn.Exec(
		query,
		sched.ID.String(),
		sched.EnvName,
		sched.Name,
		sched.Description,
		sched.TriggerType,
		sched.RepeatEverySeconds,
		string(tmpl),
		sched.Enabled,
		sched.LastRun,
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	return nil
}

// GetScheduler retrieves a scheduler by id.
func (s *Store) GetScheduler(id uuid.UUID) (*JobScheduler, error) {
	query := `SELECT ` + schedulerColumns + ` FROM jobscheduler WHERE id = ?`
	sched, err := scanScheduler(s.conn.QueryRow(query, id.String()))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduler: %w", err)
	}
	return sched, nil
}

// ListSchedulers returns all schedulers for an env.
func (s *Store) ListSchedulers(envName string) ([]*JobScheduler, error) {
	query := `SELECT ` + schedulerColumns + ` FROM jobscheduler WHERE env_name = ? ORDER BY name, id`
	return s.querySchedulers(query, envName)
}

// ListOnStartSchedulers returns enabled on_start schedulers for an env.
func (s *Store) ListOnStartSchedulers(envName string) ([]*JobScheduler, error) {
	query := `SELECT ` + schedulerColumns + ` FROM jobscheduler
		WHERE env_name = ? AND trigger_type = ? AND enabled = 1 ORDER BY name, id`
	return s.querySchedulers(query, envName, TriggerOnStart)
}

// ListDueRepeatSchedulers returns enabled repeat schedulers whose due
// predicate holds at the given unix time.
func (s *Store) ListDueRepeatSchedulers(envName string, now int64) ([]*JobScheduler, error) {
	query := `SELECT ` + schedulerColumns + ` FROM jobscheduler
		WHERE env_name = ? AND trigger_type = ? AND enabled = 1 ORDER BY name, id`
	schedulers, err := s.querySchedulers(query, envName, TriggerRepeat)
	if err != nil {
		return nil, err
	}

	var due []*JobScheduler
	for _, sched := range schedulers {
		if sched.DueAt(now) {
			due = append(due, sched)
		}
	}
	return due, nil
}

// MarkSchedulerFired records the spawn instant. Called before the spawned
// job is enqueued so a slow spawn cannot re-fire.
func (s *Store) MarkSchedulerFired(id uuid.UUID, now int64) error {
	result, err := s.conn.Exec(`UPDATE jobscheduler SET last_run = ? WHERE id = ?`, now, id.String())
	if err != nil {
		return fmt.Errorf("failed to mark scheduler fired: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateScheduler applies a partial patch and returns the updated row.
func (s *Store) UpdateScheduler(id uuid.UUID, patch SchedulerUpdate) (*JobScheduler, error) {
	var sets []string
	var args []interface{}
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if patch.EnvName != nil {
		add("env_name", *patch.EnvName)
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.TriggerType != nil {
		if !patch.TriggerType.Valid() {
			return nil, &ValidationError{Msg: "invalid trigger_type: " + string(*patch.TriggerType)}
		}
		add("trigger_type", *patch.TriggerType)
	}
	if patch.RepeatEverySeconds != nil {
		add("repeat_every_seconds", *patch.RepeatEverySeconds)
	}
	if patch.JobTemplate != nil {
		tmpl, err := json.Marshal(patch.JobTemplate)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal job template: %w", err)
		}
		add("job_template", string(tmpl))
	}
	if patch.Enabled != nil {
		add("enabled", *patch.Enabled)
	}
	if patch.LastRun != nil {
		add("last_run", *patch.LastRun)
	}

	if len(sets) > 0 {
		query := `UPDATE jobscheduler SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
		args = append(args, id.String())
		result, err := s.conn.Exec(query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update scheduler: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check rows affected: %w", err)
		}
		if n == 0 {
			return nil, ErrNotFound
		}
	}

	return s.GetScheduler(id)
}

// ToggleScheduler flips the enabled flag and returns the updated row.
func (s *Store) ToggleScheduler(id uuid.UUID) (*JobScheduler, error) {
	sched, err := s.GetScheduler(id)
	if err != nil {
		return nil, err
	}
	enabled := !sched.Enabled
	return s.UpdateScheduler(id, SchedulerUpdate{Enabled: &enabled})
}

// DeleteScheduler removes a scheduler. Returns ErrNotFound for unknown ids.
func (s *Store) DeleteScheduler(id uuid.UUID) error {
	result, err := s.conn.Exec(`DELETE FROM jobscheduler WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete scheduler: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) querySchedulers(query string, args ...interface{}) ([]*JobScheduler, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedulers: %w", err)
	}
	defer rows.Close()

	var schedulers []*JobScheduler
	for rows.Next() {
		sched, err := scanScheduler(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduler: %w", err)
		}
		schedulers = append(schedulers, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedulers: %w", err)
	}

	return schedulers, nil
}

func scanScheduler(row rowScanner) (*JobScheduler, error) {
	var (
		sched   JobScheduler
		idStr   string
		tmplStr string
	)
	err := row.Scan(
		&idStr,
		&sched.EnvName,
		&sched.Name,
		&sched.Description,
		&sched.TriggerType,
		&sched.RepeatEverySeconds,
		&tmplStr,
		&sched.Enabled,
		&sched.LastRun,
	)
	if err != nil {
		return nil, err
	}

	sched.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler id %q: %w", idStr, err)
	}
	if err := json.Unmarshal([]byte(tmplStr), &sched.JobTemplate); err != nil {
		return nil, fmt.Errorf("invalid job template for scheduler %s: %w", idStr, err)
	}

	return &sched, nil
}
