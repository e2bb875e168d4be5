package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestSchedulerCreateAndGet(t *testing.T) {
	s := newTestStore(t)

	sched := NewJobScheduler("test")
	sched.Name = "nightly"
	sched.TriggerType = TriggerRepeat
	sched.RepeatEverySeconds = intPtr(3600)
	sched.JobTemplate = map[string]interface{}{"command": "echo hi", "status": "queued"}
	require.NoError(t, s.CreateScheduler(sched))

	got, err := s.GetScheduler(sched.ID)
	require.NoError(t, err)
	assert.Equal(t, "nightly", got.Name)
	assert.Equal(t, TriggerRepeat, got.TriggerType)
	assert.Equal(t, 3600, *got.RepeatEverySeconds)
	assert.True(t, got.Enabled)
	assert.Nil(t, got.LastRun)
}

func TestSchedulerValidation(t *testing.T) {
	s := newTestStore(t)

	sched := NewJobScheduler("test")
	sched.TriggerType = TriggerRepeat
	var verr *ValidationError
	assert.ErrorAs(t, s.CreateScheduler(sched), &verr)

	sched.RepeatEverySeconds = intPtr(0)
	assert.ErrorAs(t, s.CreateScheduler(sched), &verr)
}

func TestSchedulerDueAt(t *testing.T) {
	now := time.Now().Unix()

	sched := NewJobScheduler("test")
	sched.TriggerType = TriggerRepeat
	sched.RepeatEverySeconds = intPtr(60)

	// Never fired: due immediately.
	assert.True(t, sched.DueAt(now))

	last := now - 30
	sched.LastRun = &last
	assert.False(t, sched.DueAt(now))

	last = now - 60
	assert.True(t, sched.DueAt(now))

	sched.Enabled = false
	assert.False(t, sched.DueAt(now))
}

func TestListDueRepeatSchedulers(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Unix()

	due := NewJobScheduler("test")
	due.Name = "due"
	due.TriggerType = TriggerRepeat
	due.RepeatEverySeconds = intPtr(60)
	require.NoError(t, s.CreateScheduler(due))

	fresh := NewJobScheduler("test")
	fresh.Name = "fresh"
	fresh.TriggerType = TriggerRepeat
	fresh.RepeatEverySeconds = intPtr(3600)
	recent := now - 10
	fresh.LastRun = &recent
	require.NoError(t, s.CreateScheduler(fresh))

	onStart := NewJobScheduler("test")
	onStart.Name = "boot"
	require.NoError(t, s.CreateScheduler(onStart))

	result, err := s.ListDueRepeatSchedulers("test", now)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, due.ID, result[0].ID)
}

func TestMarkSchedulerFired(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().Unix()

	sched := NewJobScheduler("test")
	sched.TriggerType = TriggerRepeat
	sched.RepeatEverySeconds = intPtr(60)
	require.NoError(t, s.CreateScheduler(sched))

	require.NoError(t, s.MarkSchedulerFired(sched.ID, now))

	got, err := s.GetScheduler(sched.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRun)
	assert.Equal(t, now, *got.LastRun)
	assert.False(t, got.DueAt(now))

	assert.ErrorIs(t, s.MarkSchedulerFired(uuid.New(), now), ErrNotFound)
}

func TestListOnStartSchedulers(t *testing.T) {
	s := newTestStore(t)

	boot := NewJobScheduler("test")
	boot.Name = "boot"
	require.NoError(t, s.CreateScheduler(boot))

	disabled := NewJobScheduler("test")
	disabled.Name = "off"
	disabled.Enabled = false
	require.NoError(t, s.CreateScheduler(disabled))

	repeat := NewJobScheduler("test")
	repeat.TriggerType = TriggerRepeat
	repeat.RepeatEverySeconds = intPtr(60)
	require.NoError(t, s.CreateScheduler(repeat))

	result, err := s.ListOnStartSchedulers("test")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, boot.ID, result[0].ID)
}

func TestToggleScheduler(t *testing.T) {
	s := newTestStore(t)

	sched := NewJobScheduler("test")
	require.NoError(t, s.CreateScheduler(sched))

	toggled, err := s.ToggleScheduler(sched.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Enabled)

	toggled, err = s.ToggleScheduler(sched.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Enabled)
}

func TestDeleteScheduler(t *testing.T) {
	s := newTestStore(t)

	sched := NewJobScheduler("test")
	require.NoError(t, s.CreateScheduler(sched))
	require.NoError(t, s.DeleteScheduler(sched.ID))

	_, err := s.GetScheduler(sched.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobFromTemplate(t *testing.T) {
	job, err := JobFromTemplate(map[string]interface{}{
		"name":     "templated",
		"command":  "echo hi",
		"priority": "high",
	}, "test")
	require.NoError(t, err)

	assert.Equal(t, StatusQueued, job.Status)
	assert.Equal(t, "templated", job.Name)
	assert.Equal(t, PriorityHigh, job.Priority)
	assert.Equal(t, "test", job.EnvName)
	assert.Equal(t, "default", job.QueueName)
	assert.Nil(t, job.Recurrence)
	assert.Zero(t, job.RetryCount)
}

func TestJobFromTemplateRejectsInvalid(t *testing.T) {
	_, err := JobFromTemplate(map[string]interface{}{
		"type": "bogus",
	}, "test")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}
