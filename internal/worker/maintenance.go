package worker

import (
	"fmt"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mpreston/jobq/internal/store"
)

// CleanupStuck reaps jobs stuck in running whose process is gone: no
// recorded pid, or a pid that no longer answers signal 0. Such a job is
// marked failed. A user kill goes through the pending path instead, so
// the two outcomes stay distinguishable.
func (r *Runtime) CleanupStuck() error {
	jobs, err := r.store.List(r.env, r.queue.Name(), false)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if job.Status != store.StatusRunning {
			continue
		}
		if job.PID != nil && processAlive(*job.PID) {
			continue
		}

		r.log.WithFields(logrus.Fields{
			"job_id": job.ID,
			"pid":    job.PID,
		}).Warn("running job has no live process, marking failed")

		failed := store.StatusFailed
		if _, err := r.store.Update(job.ID, store.JobUpdate{
			Status:   &failed,
			ClearPID: true,
		}); err != nil {
			r.log.WithField("job_id", job.ID).WithError(err).Error("failed to reap stuck job")
		}
	}
	return nil
}

// processAlive reports whether a process with the given pid exists.
// Signal 0 performs the existence check without delivering anything.
func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// SpawnRecurring creates fresh queued instances from every template
// with the given recurrence. Templates themselves never execute.
func (r *Runtime) SpawnRecurring(recurrence string) error {
	jobs, err := r.store.List(r.env, r.queue.Name(), false)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if job.Recurrence == nil || *job.Recurrence != recurrence {
			continue
		}

		inst := job.SpawnInstance()
		if err := r.store.Create(inst); err != nil {
			r.log.WithField("template_id", job.ID).WithError(err).Error("failed to spawn recurring job")
			continue
		}
		r.log.WithFields(logrus.Fields{
			"template_id": job.ID,
			"job_id":      inst.ID,
			"recurrence":  recurrence,
		}).Info("spawned recurring job instance")
	}
	return nil
}

// SchedulerTick fires every due repeat scheduler: mark it fired first,
// then materialize its template into a queued job. Marking first means
// a slow spawn cannot double-fire on the next tick.
func (r *Runtime) SchedulerTick(now time.Time) error {
	due, err := r.store.ListDueRepeatSchedulers(r.env, now.Unix())
	if err != nil {
		return err
	}

	for _, sched := range due {
		if err := r.store.MarkSchedulerFired(sched.ID, now.Unix()); err != nil {
			r.log.WithField("scheduler_id", sched.ID).WithError(err).Error("failed to mark scheduler fired")
			continue
		}
		if err := spawnSchedulerJob(r.store, sched, r.env); err != nil {
			r.log.WithField("scheduler_id", sched.ID).WithError(err).Error("failed to spawn scheduled job")
		}
	}
	return nil
}

// RunOnStartSchedulers fires every enabled on_start scheduler once. The
// server calls this at boot, after the consumers are up.
func RunOnStartSchedulers(st *store.Store, envName string, log *logrus.Entry) error {
	schedulers, err := st.ListOnStartSchedulers(envName)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	for _, sched := range schedulers {
		if err := st.MarkSchedulerFired(sched.ID, now); err != nil {
			log.WithField("scheduler_id", sched.ID).WithError(err).Error("failed to mark scheduler fired")
			continue
		}
		if err := spawnSchedulerJob(st, sched, envName); err != nil {
			log.WithField("scheduler_id", sched.ID).WithError(err).Error("failed to spawn on-start job")
			continue
		}
		log.WithField("scheduler", sched.Name).Info("fired on-start scheduler")
	}
	return nil
}

// spawnSchedulerJob materializes a scheduler's template into a queued job.
func spawnSchedulerJob(st *store.Store, sched *store.JobScheduler, envName string) error {
	job, err := store.JobFromTemplate(sched.JobTemplate, envName)
	if err != nil {
		return err
	}
	if job.Name == "" {
		job.Name = fmt.Sprintf("Scheduled Job (%s): %s", sched.TriggerType, sched.Name)
	}
	return st.Create(job)
}
