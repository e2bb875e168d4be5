package store

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpreston/jobq/internal/events"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), "test", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)

	job := NewJob("test")
	job.Name = "hello"
	job.Command = "echo hello"
	require.NoError(t, s.Create(job))

	got, err := s.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "hello", got.Name)
	assert.Equal(t, "echo hello", got.Command)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, PriorityNormal, got.Priority)
	assert.Equal(t, "default", got.QueueName)
	assert.Nil(t, got.PID)
	assert.Nil(t, got.Recurrence)
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	job := NewJob("test")
	job.Type = "bogus"
	var verr *ValidationError
	assert.ErrorAs(t, s.Create(job), &verr)

	job = NewJob("test")
	job.Priority = "urgent"
	assert.ErrorAs(t, s.Create(job), &verr)

	job = NewJob("test")
	rec := "weekly"
	job.Recurrence = &rec
	assert.ErrorAs(t, s.Create(job), &verr)
}

func TestListFiltersEnvQueueArchived(t *testing.T) {
	s := newTestStore(t)

	a := NewJob("test")
	a.QueueName = "default"
	require.NoError(t, s.Create(a))

	b := NewJob("test")
	b.QueueName = "reserved"
	require.NoError(t, s.Create(b))

	c := NewJob("other")
	require.NoError(t, s.Create(c))

	archived := NewJob("test")
	archived.Archived = true
	require.NoError(t, s.Create(archived))

	jobs, err := s.List("test", "", false)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = s.List("test", "reserved", false)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, b.ID, jobs[0].ID)

	jobs, err = s.List("test", "", true)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
}

func TestUpdateStatusTransitions(t *testing.T) {
	s := newTestStore(t)

	job := NewJob("test")
	require.NoError(t, s.Create(job))

	// pending -> queued -> running -> done
	for _, next := range []JobStatus{StatusQueued, StatusRunning, StatusDone} {
		updated, err := s.UpdateStatus(job.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}

	// done -> running is illegal
	_, err := s.UpdateStatus(job.ID, StatusRunning)
	var terr *TransitionError
	assert.ErrorAs(t, err, &terr)

	// cancellation is always legal
	updated, err := s.UpdateStatus(job.ID, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, updated.Status)
}

func TestUpdateKillPathFromQueued(t *testing.T) {
	s := newTestStore(t)

	job := NewJob("test")
	job.Status = StatusQueued
	require.NoError(t, s.Create(job))

	updated, err := s.UpdateStatus(job.ID, StatusPending)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, updated.Status)
}

func TestUpdateClearsPID(t *testing.T) {
	s := newTestStore(t)

	job := NewJob("test")
	job.Status = StatusQueued
	require.NoError(t, s.Create(job))

	_, err := s.Claim(job.ID)
	require.NoError(t, err)

	pid := 12345
	updated, err := s.Update(job.ID, JobUpdate{PID: &pid})
	require.NoError(t, err)
	require.NotNil(t, updated.PID)
	assert.Equal(t, pid, *updated.PID)

	done := StatusDone
	updated, err = s.Update(job.ID, JobUpdate{Status: &done, ClearPID: true})
	require.NoError(t, err)
	assert.Nil(t, updated.PID)
}

func TestClaim(t *testing.T) {
	s := newTestStore(t)

	job := NewJob("test")
	job.Status = StatusQueued
	require.NoError(t, s.Create(job))

	claimed, err := s.Claim(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, claimed.Status)

	// Second claim observes running, not queued.
	_, err = s.Claim(job.ID)
	assert.ErrorIs(t, err, ErrStaleTransition)
}

func TestClaimUnknownJob(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Claim(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClaimSkipsTemplates(t *testing.T) {
	s := newTestStore(t)

	rec := RecurrenceHourly
	job := NewJob("test")
	job.Status = StatusQueued
	job.Recurrence = &rec
	require.NoError(t, s.Create(job))

	_, err := s.Claim(job.ID)
	assert.ErrorIs(t, err, ErrStaleTransition)
}

func TestUpdateTemplateNeverRuns(t *testing.T) {
	s := newTestStore(t)

	rec := RecurrenceDaily
	job := NewJob("test")
	job.Status = StatusQueued
	job.Recurrence = &rec
	require.NoError(t, s.Create(job))

	_, err := s.UpdateStatus(job.ID, StatusRunning)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSpawnInstance(t *testing.T) {
	rec := RecurrenceHourly
	tmpl := NewJob("test")
	tmpl.Name = "recurring"
	tmpl.Status = StatusQueued
	tmpl.Recurrence = &rec
	tmpl.Meta = map[string]interface{}{"key": "value"}

	inst := tmpl.SpawnInstance()
	assert.NotEqual(t, tmpl.ID, inst.ID)
	assert.Equal(t, StatusQueued, inst.Status)
	assert.Nil(t, inst.Recurrence)
	assert.Equal(t, "recurring", inst.Name)
	assert.Equal(t, tmpl.Meta, inst.Meta)

	// Meta is a copy, not shared.
	inst.Meta["key"] = "changed"
	assert.Equal(t, "value", tmpl.Meta["key"])
}

func TestCount(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		job := NewJob("test")
		job.Status = StatusQueued
		require.NoError(t, s.Create(job))
	}
	running := NewJob("test")
	running.Status = StatusQueued
	require.NoError(t, s.Create(running))
	_, err := s.Claim(running.ID)
	require.NoError(t, err)

	n, err := s.Count(CountFilter{EnvName: "test", Status: StatusQueued})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.Count(CountFilter{EnvName: "test", Status: StatusRunning})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	job := NewJob("test")
	require.NoError(t, s.Create(job))
	require.NoError(t, s.Delete(job.ID))

	_, err := s.Get(job.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(job.ID), ErrNotFound)
}

func TestMutationsPublishSnapshots(t *testing.T) {
	bus := events.NewBus()
	var snapshots int
	bus.Subscribe(func(e events.Event) {
		if e.Type == events.JobsChanged {
			snapshots++
		}
	})

	s, err := Open(filepath.Join(t.TempDir(), "test.db"), "test", bus)
	require.NoError(t, err)
	defer s.Close()

	job := NewJob("test")
	job.Status = StatusQueued
	require.NoError(t, s.Create(job))
	_, err = s.Claim(job.ID)
	require.NoError(t, err)
	_, err = s.UpdateStatus(job.ID, StatusDone)
	require.NoError(t, err)

	assert.Equal(t, 3, snapshots)
}
