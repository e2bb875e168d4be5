// Package worker implements the consumer runtime: a single loop that
// drains one queue's durable task table, executing one task at a time.
// Periodic maintenance is fed through the same table by cron triggers,
// so nothing inside a consumer ever runs concurrently with a job.
package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/mpreston/jobq/internal/dispatch"
	"github.com/mpreston/jobq/internal/paths"
	"github.com/mpreston/jobq/internal/scripts"
	"github.com/mpreston/jobq/internal/store"
	"github.com/mpreston/jobq/internal/taskqueue"
)

// pollInterval is how long the loop sleeps when the task table is empty.
const pollInterval = 250 * time.Millisecond

// Runtime executes tasks for one named queue.
type Runtime struct {
	store      *store.Store
	queue      *taskqueue.Queue
	dispatcher *dispatch.Dispatcher
	registry   *scripts.Registry
	layout     paths.Layout
	env        string

	// schedulerTick enables the per-minute scheduler evaluation; only
	// one queue (the first configured) carries it.
	schedulerTick bool

	cron *cron.Cron
	log  *logrus.Entry
}

// Config wires a Runtime.
type Config struct {
	Store         *store.Store
	Queue         *taskqueue.Queue
	Registry      *scripts.Registry
	Layout        paths.Layout
	EnvName       string
	SchedulerTick bool
}

// New creates a runtime for one queue.
func New(cfg Config) *Runtime {
	registry := cfg.Registry
	if registry == nil {
		registry = scripts.DefaultRegistry()
	}
	return &Runtime{
		store:         cfg.Store,
		queue:         cfg.Queue,
		dispatcher:    dispatch.New(cfg.Store, cfg.Queue, cfg.EnvName),
		registry:      registry,
		layout:        cfg.Layout,
		env:           cfg.EnvName,
		schedulerTick: cfg.SchedulerTick,
		log:           logrus.WithField("queue", cfg.Queue.Name()),
	}
}

// Run blocks draining the queue until the context is cancelled.
// Cron entries enqueue maintenance tasks rather than running them
// inline, which keeps the single-task-at-a-time guarantee.
func (r *Runtime) Run(ctx context.Context) error {
	r.cron = cron.New()
	r.registerPeriodic()
	r.cron.Start()
	defer r.cron.Stop()

	r.log.Info("consumer runtime started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info("consumer runtime stopping")
			return ctx.Err()
		default:
		}

		task, err := r.queue.Dequeue()
		if err != nil {
			r.log.WithError(err).Error("failed to dequeue task")
			time.Sleep(pollInterval)
			continue
		}
		if task == nil {
			time.Sleep(pollInterval)
			continue
		}

		r.handle(ctx, task)
	}
}

// registerPeriodic installs the maintenance triggers.
func (r *Runtime) registerPeriodic() {
	enqueue := func(kind taskqueue.Kind) func() {
		return func() {
			if _, err := r.queue.Enqueue(kind, ""); err != nil {
				r.log.WithError(err).WithField("kind", kind).Error("failed to enqueue periodic task")
			}
		}
	}

	r.cron.AddFunc("* * * * *", enqueue(taskqueue.KindCheckQueued))
	r.cron.AddFunc("*/5 * * * *", enqueue(taskqueue.KindCleanupStuck))
	r.cron.AddFunc("0 * * * *", enqueue(taskqueue.KindSpawnHourly))
	r.cron.AddFunc("0 0 * * *", enqueue(taskqueue.KindSpawnDaily))
	if r.schedulerTick {
		r.cron.AddFunc("* * * * *", enqueue(taskqueue.KindSchedulerTick))
	}
}

// handle runs one task to completion.
func (r *Runtime) handle(ctx context.Context, task *taskqueue.Task) {
	switch task.Kind {
	case taskqueue.KindExecuteJob:
		r.ExecuteJob(ctx, task.JobID)
	case taskqueue.KindCheckQueued:
		if err := r.dispatcher.CheckAndProcess(); err != nil {
			r.log.WithError(err).Error("periodic queued-job check failed")
		}
	case taskqueue.KindCleanupStuck:
		if err := r.CleanupStuck(); err != nil {
			r.log.WithError(err).Error("stuck-job cleanup failed")
		}
	case taskqueue.KindSpawnHourly:
		if err := r.SpawnRecurring(store.RecurrenceHourly); err != nil {
			r.log.WithError(err).Error("hourly recurring spawn failed")
		}
	case taskqueue.KindSpawnDaily:
		if err := r.SpawnRecurring(store.RecurrenceDaily); err != nil {
			r.log.WithError(err).Error("daily recurring spawn failed")
		}
	case taskqueue.KindSchedulerTick:
		if err := r.SchedulerTick(time.Now()); err != nil {
			r.log.WithError(err).Error("scheduler tick failed")
		}
	default:
		r.log.WithField("kind", task.Kind).Warn("unknown task kind, dropping")
	}
}
