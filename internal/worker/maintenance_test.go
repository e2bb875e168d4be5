package worker

import (
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpreston/jobq/internal/store"
)

func TestCleanupStuckReapsDeadProcess(t *testing.T) {
	r, st, _ := newTestRuntime(t)

	job := createQueuedJob(t, st, store.JobTypeCommand, "echo hi")
	_, err := st.Claim(job.ID)
	require.NoError(t, err)

	// A pid that cannot exist.
	pid := 1 << 30
	_, err = st.Update(job.ID, store.JobUpdate{PID: &pid})
	require.NoError(t, err)

	require.NoError(t, r.CleanupStuck())

	got, err := st.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, got.Status)
	assert.Nil(t, got.PID)
}

func TestCleanupStuckReapsMissingPID(t *testing.T) {
	r, st, _ := newTestRuntime(t)

	job := createQueuedJob(t, st, store.JobTypeCommand, "echo hi")
	_, err := st.Claim(job.ID)
	require.NoError(t, err)

	require.NoError(t, r.CleanupStuck())

	got, err := st.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, got.Status)
}

func TestCleanupStuckLeavesLiveProcess(t *testing.T) {
	r, st, _ := newTestRuntime(t)

	job := createQueuedJob(t, st, store.JobTypeCommand, "echo hi")
	_, err := st.Claim(job.ID)
	require.NoError(t, err)

	pid := os.Getpid()
	_, err = st.Update(job.ID, store.JobUpdate{PID: &pid})
	require.NoError(t, err)

	require.NoError(t, r.CleanupStuck())

	got, err := st.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusRunning, got.Status)
}

func TestSpawnRecurringCreatesInstance(t *testing.T) {
	r, st, _ := newTestRuntime(t)

	rec := store.RecurrenceHourly
	tmpl := store.NewJob("test")
	tmpl.Name = "hourly-job"
	tmpl.Command = "echo tick"
	tmpl.Status = store.StatusQueued
	tmpl.Recurrence = &rec
	require.NoError(t, st.Create(tmpl))

	require.NoError(t, r.SpawnRecurring(store.RecurrenceHourly))

	jobs, err := st.List("test", "default", false)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	var instance *store.Job
	for _, job := range jobs {
		if job.ID != tmpl.ID {
			instance = job
		}
	}
	require.NotNil(t, instance)
	assert.Equal(t, store.StatusQueued, instance.Status)
	assert.Nil(t, instance.Recurrence)
	assert.Equal(t, "hourly-job", instance.Name)
}

func TestSpawnRecurringIgnoresOtherRecurrence(t *testing.T) {
	r, st, _ := newTestRuntime(t)

	rec := store.RecurrenceDaily
	tmpl := store.NewJob("test")
	tmpl.Status = store.StatusQueued
	tmpl.Recurrence = &rec
	require.NoError(t, st.Create(tmpl))

	require.NoError(t, r.SpawnRecurring(store.RecurrenceHourly))

	jobs, err := st.List("test", "default", false)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestSchedulerTickFiresDueScheduler(t *testing.T) {
	r, st, _ := newTestRuntime(t)
	now := time.Now()

	every := 60
	sched := store.NewJobScheduler("test")
	sched.Name = "minutely"
	sched.TriggerType = store.TriggerRepeat
	sched.RepeatEverySeconds = &every
	sched.JobTemplate = map[string]interface{}{"command": "echo tick"}
	require.NoError(t, st.CreateScheduler(sched))

	require.NoError(t, r.SchedulerTick(now))

	// last_run is set before the job lands.
	got, err := st.GetScheduler(sched.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRun)
	assert.Equal(t, now.Unix(), *got.LastRun)

	jobs, err := st.List("test", "default", false)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, store.StatusQueued, jobs[0].Status)

	// A second tick inside the interval spawns nothing.
	require.NoError(t, r.SchedulerTick(now.Add(10*time.Second)))
	jobs, err = st.List("test", "default", false)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestRunOnStartSchedulers(t *testing.T) {
	_, st, _ := newTestRuntime(t)

	sched := store.NewJobScheduler("test")
	sched.Name = "boot"
	sched.JobTemplate = map[string]interface{}{"command": "echo boot"}
	require.NoError(t, st.CreateScheduler(sched))

	disabled := store.NewJobScheduler("test")
	disabled.Enabled = false
	require.NoError(t, st.CreateScheduler(disabled))

	log := logrus.WithField("test", t.Name())
	require.NoError(t, RunOnStartSchedulers(st, "test", log))

	jobs, err := st.List("test", "default", false)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, store.StatusQueued, jobs[0].Status)

	got, err := st.GetScheduler(sched.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastRun)
}
