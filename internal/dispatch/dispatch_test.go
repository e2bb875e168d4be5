package dispatch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpreston/jobq/internal/store"
	"github.com/mpreston/jobq/internal/taskqueue"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *store.Store, *taskqueue.Queue) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "store.db"), "test", nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	q, err := taskqueue.Open(filepath.Join(dir, "queue.db"), "default")
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })

	return New(st, q, "test"), st, q
}

func queuedJob(t *testing.T, st *store.Store, name string, priority store.Priority) *store.Job {
	t.Helper()
	job := store.NewJob("test")
	job.Name = name
	job.Priority = priority
	job.Status = store.StatusQueued
	require.NoError(t, st.Create(job))
	return job
}

func TestTriggerNextPicksHighestPriority(t *testing.T) {
	d, st, q := newTestDispatcher(t)

	queuedJob(t, st, "low", store.PriorityLow)
	highest := queuedJob(t, st, "highest", store.PriorityHighest)
	queuedJob(t, st, "normal", store.PriorityNormal)

	require.NoError(t, d.TriggerNext())

	task, err := q.Dequeue()
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, taskqueue.KindExecuteJob, task.Kind)
	assert.Equal(t, highest.ID.String(), task.JobID)
}

func TestTriggerNextBreaksTiesByCreation(t *testing.T) {
	d, st, q := newTestDispatcher(t)

	first := queuedJob(t, st, "first", store.PriorityNormal)
	queuedJob(t, st, "second", store.PriorityNormal)

	require.NoError(t, d.TriggerNext())

	task, err := q.Dequeue()
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, first.ID.String(), task.JobID)
}

func TestTriggerNextIgnoresTemplatesAndNonQueued(t *testing.T) {
	d, st, q := newTestDispatcher(t)

	pending := store.NewJob("test")
	require.NoError(t, st.Create(pending))

	rec := store.RecurrenceHourly
	tmpl := store.NewJob("test")
	tmpl.Status = store.StatusQueued
	tmpl.Recurrence = &rec
	require.NoError(t, st.Create(tmpl))

	require.NoError(t, d.TriggerNext())

	task, err := q.Dequeue()
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestCheckAndProcessSkipsBusyQueue(t *testing.T) {
	d, st, q := newTestDispatcher(t)

	running := queuedJob(t, st, "running", store.PriorityNormal)
	_, err := st.Claim(running.ID)
	require.NoError(t, err)

	queuedJob(t, st, "waiting", store.PriorityNormal)

	require.NoError(t, d.CheckAndProcess())

	task, err := q.Dequeue()
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestCheckAndProcessDispatchesWhenIdle(t *testing.T) {
	d, st, q := newTestDispatcher(t)

	job := queuedJob(t, st, "waiting", store.PriorityNormal)

	require.NoError(t, d.CheckAndProcess())

	task, err := q.Dequeue()
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, job.ID.String(), task.JobID)
}

func TestCheckAndProcessIdlesOnEmptyQueue(t *testing.T) {
	d, _, q := newTestDispatcher(t)

	require.NoError(t, d.CheckAndProcess())

	task, err := q.Dequeue()
	require.NoError(t, err)
	assert.Nil(t, task)
}
