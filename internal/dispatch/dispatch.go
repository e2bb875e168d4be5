// Package dispatch selects the next job to run for a queue and hands it
// to the queue's consumer via the durable task queue.
package dispatch

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/mpreston/jobq/internal/store"
	"github.com/mpreston/jobq/internal/taskqueue"
)

// Dispatcher picks queued jobs by priority and enqueues execute tasks.
type Dispatcher struct {
	store *store.Store
	queue *taskqueue.Queue
	env   string
	log   *logrus.Entry
}

// New creates a dispatcher for one named queue.
func New(st *store.Store, q *taskqueue.Queue, envName string) *Dispatcher {
	return &Dispatcher{
		store: st,
		queue: q,
		env:   envName,
		log:   logrus.WithField("queue", q.Name()),
	}
}

// TriggerNext enqueues an execute task for the highest-priority queued
// job, if any. Recurrence templates are skipped: they only spawn
// instances, they never run themselves. Ties break by creation time, so
// a steady stream of high-priority jobs intentionally starves lower
// priorities.
func (d *Dispatcher) TriggerNext() error {
	jobs, err := d.store.List(d.env, d.queue.Name(), false)
	if err != nil {
		return err
	}

	var queued []*store.Job
	for _, job := range jobs {
		if job.Status == store.StatusQueued && !job.IsTemplate() {
			queued = append(queued, job)
		}
	}
	if len(queued) == 0 {
		d.log.Debug("no queued jobs")
		return nil
	}

	sort.SliceStable(queued, func(i, j int) bool {
		if queued[i].Priority.Rank() != queued[j].Priority.Rank() {
			return queued[i].Priority.Rank() < queued[j].Priority.Rank()
		}
		return queued[i].CreatedAt.Before(queued[j].CreatedAt)
	})

	next := queued[0]
	d.log.WithFields(logrus.Fields{
		"job_id":   next.ID,
		"name":     next.Name,
		"priority": next.Priority,
	}).Info("triggering next queued job")

	_, err = d.queue.Enqueue(taskqueue.KindExecuteJob, next.ID.String())
	return err
}

// CheckAndProcess is the periodic safety net: dispatch only when nothing
// is running for this queue and at least one job is queued. It recovers
// from missed completion triggers and from jobs submitted while the
// queue was idle.
func (d *Dispatcher) CheckAndProcess() error {
	running, err := d.store.Count(store.CountFilter{
		EnvName:   d.env,
		QueueName: d.queue.Name(),
		Status:    store.StatusRunning,
	})
	if err != nil {
		return err
	}
	if running > 0 {
		d.log.WithField("running", running).Debug("queue busy, skipping check")
		return nil
	}

	queued, err := d.store.Count(store.CountFilter{
		EnvName:   d.env,
		QueueName: d.queue.Name(),
		Status:    store.StatusQueued,
	})
	if err != nil {
		return err
	}
	if queued == 0 {
		return nil
	}

	return d.TriggerNext()
}
