package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobFromTemplate materializes a scheduler's job_template into a fresh
// queued job. The template is validated as a Job at spawn time, not when
// the scheduler is saved, so template errors surface in the scheduler's
// log rather than blocking scheduler CRUD.
func JobFromTemplate(template map[string]interface{}, envName string) (*Job, error) {
	data, err := json.Marshal(template)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job template: %w", err)
	}

	job := NewJob(envName)
	if err := json.Unmarshal(data, job); err != nil {
		return nil, fmt.Errorf("invalid job template: %w", err)
	}

	// The template may carry id/status/timestamps from a copied job;
	// a spawned instance always starts fresh and queued.
	job.ID = uuid.New()
	job.Status = StatusQueued
	job.CreatedAt = time.Now().UTC()
	job.RetryCount = 0
	job.PID = nil
	job.Recurrence = nil
	if job.EnvName == "" {
		job.EnvName = envName
	}
	if job.QueueName == "" {
		job.QueueName = "default"
	}
	if job.Meta == nil {
		job.Meta = map[string]interface{}{}
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}
