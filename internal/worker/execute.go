package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mpreston/jobq/internal/store"
)

// errKilled marks a command that died from SIGKILL. The user-kill path
// delivers SIGKILL, so the job goes back to pending instead of failed.
var errKilled = errors.New("process killed")

// errTimeout marks an api_post request that exceeded its deadline.
var errTimeout = errors.New("request timed out")

// ExecuteJob runs one job end to end: claim, execute by type, record
// the outcome, then chain the next queued job. A job that disappeared
// or was already handled elsewhere is skipped without error; the claim
// itself is the atomic guard against double execution.
func (r *Runtime) ExecuteJob(ctx context.Context, jobID string) {
	id, err := uuid.Parse(jobID)
	if err != nil {
		r.log.WithField("job_id", jobID).WithError(err).Error("invalid job id in task")
		return
	}
	log := r.log.WithField("job_id", id)

	job, err := r.store.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("job no longer exists, skipping")
		return
	}
	if err != nil {
		log.WithError(err).Error("failed to load job")
		return
	}

	claimed, err := r.store.Claim(id)
	if errors.Is(err, store.ErrStaleTransition) {
		log.WithField("status", job.Status).Warn("job is not queued anymore, skipping")
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("job vanished before claim, skipping")
		return
	}
	if err != nil {
		log.WithError(err).Error("failed to claim job")
		return
	}
	job = claimed

	log.WithFields(logrus.Fields{
		"name": job.Name,
		"type": job.Type,
	}).Info("executing job")

	runErr := r.run(ctx, job)
	r.finish(job, runErr)

	if err := r.dispatcher.TriggerNext(); err != nil {
		log.WithError(err).Error("failed to trigger next job")
	}
}

// run dispatches to the executor for the job's type.
func (r *Runtime) run(ctx context.Context, job *store.Job) error {
	switch job.Type {
	case store.JobTypeCommand:
		return r.runCommand(ctx, job)
	case store.JobTypeAPIPost:
		return r.runAPIPost(ctx, job)
	case store.JobTypeScript:
		return r.runScript(job)
	default:
		return fmt.Errorf("unknown job type: %q", job.Type)
	}
}

// finish records the job's terminal status. SIGKILL means a user kill
// and returns the job to pending; a timeout is an error; any other
// failure is failed. The pid is cleared in all cases.
func (r *Runtime) finish(job *store.Job, runErr error) {
	log := r.log.WithField("job_id", job.ID)

	status := store.StatusDone
	switch {
	case runErr == nil:
	case errors.Is(runErr, errKilled):
		status = store.StatusPending
	case errors.Is(runErr, errTimeout):
		status = store.StatusError
	default:
		status = store.StatusFailed
	}

	if runErr != nil && !errors.Is(runErr, errKilled) {
		r.appendJobLog(job, fmt.Sprintf("execution error: %v\n", runErr))
	}

	if _, err := r.store.Update(job.ID, store.JobUpdate{
		Status:   &status,
		ClearPID: true,
	}); err != nil {
		log.WithError(err).WithField("status", status).Error("failed to record job outcome")
		return
	}

	entry := log.WithField("status", status)
	if runErr != nil {
		entry.WithError(runErr).Warn("job finished")
	} else {
		entry.Info("job finished")
	}
}

// openJobLog opens the job's per-attempt log file for appending.
func (r *Runtime) openJobLog(job *store.Job) (*os.File, error) {
	path := r.layout.JobLog(job.ID.String(), job.RetryCount)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create job log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open job log: %w", err)
	}
	return f, nil
}

// appendJobLog best-effort writes a line to the job's log file.
func (r *Runtime) appendJobLog(job *store.Job, text string) {
	f, err := r.openJobLog(job)
	if err != nil {
		r.log.WithField("job_id", job.ID).WithError(err).Error("failed to open job log")
		return
	}
	defer f.Close()
	f.WriteString(text)
}
