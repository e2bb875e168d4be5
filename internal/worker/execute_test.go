package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpreston/jobq/internal/paths"
	"github.com/mpreston/jobq/internal/store"
	"github.com/mpreston/jobq/internal/taskqueue"
)

func newTestRuntime(t *testing.T) (*Runtime, *store.Store, *taskqueue.Queue) {
	t.Helper()
	dir := t.TempDir()
	layout := paths.New(dir)

	st, err := store.Open(layout.StoreDB(), "test", nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	q, err := taskqueue.Open(layout.QueueDB("default"), "default")
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })

	r := New(Config{
		Store:   st,
		Queue:   q,
		Layout:  layout,
		EnvName: "test",
	})
	return r, st, q
}

func createQueuedJob(t *testing.T, st *store.Store, jobType store.JobType, command string) *store.Job {
	t.Helper()
	job := store.NewJob("test")
	job.Type = jobType
	job.Command = command
	job.Status = store.StatusQueued
	require.NoError(t, st.Create(job))
	return job
}

func TestExecuteCommandJobSucceeds(t *testing.T) {
	r, st, _ := newTestRuntime(t)
	job := createQueuedJob(t, st, store.JobTypeCommand, "echo hello")

	r.ExecuteJob(context.Background(), job.ID.String())

	got, err := st.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusDone, got.Status)
	assert.Nil(t, got.PID)

	content, err := os.ReadFile(r.layout.JobLog(job.ID.String(), 0))
	require.NoError(t, err)
	assert.Contains(t, string(content), "hello")
}

func TestExecuteCommandJobFails(t *testing.T) {
	r, st, _ := newTestRuntime(t)
	job := createQueuedJob(t, st, store.JobTypeCommand, "exit 3")

	r.ExecuteJob(context.Background(), job.ID.String())

	got, err := st.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, got.Status)
	assert.Nil(t, got.PID)
}

func TestExecuteSkipsNonQueuedJob(t *testing.T) {
	r, st, _ := newTestRuntime(t)

	job := store.NewJob("test")
	job.Command = "echo nope"
	require.NoError(t, st.Create(job))

	r.ExecuteJob(context.Background(), job.ID.String())

	got, err := st.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, got.Status)
}

func TestExecuteSkipsMissingJob(t *testing.T) {
	r, _, q := newTestRuntime(t)

	r.ExecuteJob(context.Background(), "2b8ffbb8-0000-0000-0000-000000000000")

	task, err := q.Dequeue()
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestExecuteChainsNextJob(t *testing.T) {
	r, st, q := newTestRuntime(t)

	first := createQueuedJob(t, st, store.JobTypeCommand, "echo one")
	second := createQueuedJob(t, st, store.JobTypeCommand, "echo two")

	r.ExecuteJob(context.Background(), first.ID.String())

	task, err := q.Dequeue()
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, taskqueue.KindExecuteJob, task.Kind)
	assert.Equal(t, second.ID.String(), task.JobID)
}

func TestExecuteScriptJob(t *testing.T) {
	r, st, _ := newTestRuntime(t)

	job := store.NewJob("test")
	job.Type = store.JobTypeScript
	job.Command = "echo"
	job.Meta = map[string]interface{}{"message": "hi there"}
	job.Status = store.StatusQueued
	require.NoError(t, st.Create(job))

	r.ExecuteJob(context.Background(), job.ID.String())

	got, err := st.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusDone, got.Status)

	content, err := os.ReadFile(r.layout.JobLog(job.ID.String(), 0))
	require.NoError(t, err)
	assert.Contains(t, string(content), "hi there")
}

func TestExecuteScriptJobUnknownScript(t *testing.T) {
	r, st, _ := newTestRuntime(t)
	job := createQueuedJob(t, st, store.JobTypeScript, "no-such-script")

	r.ExecuteJob(context.Background(), job.ID.String())

	got, err := st.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, got.Status)
}

func TestExecuteScriptJobRejectedInput(t *testing.T) {
	r, st, _ := newTestRuntime(t)

	// The echo script requires a "message" key.
	job := createQueuedJob(t, st, store.JobTypeScript, "echo")

	r.ExecuteJob(context.Background(), job.ID.String())

	got, err := st.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, got.Status)
}

func TestKilledCommandReturnsToPending(t *testing.T) {
	r, st, _ := newTestRuntime(t)
	job := createQueuedJob(t, st, store.JobTypeCommand, "sleep 60")

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.ExecuteJob(context.Background(), job.ID.String())
	}()

	// Wait for the pid to be recorded, then kill the job's process group
	// the way the kill endpoint does.
	var pid int
	require.Eventually(t, func() bool {
		got, err := st.Get(job.ID)
		if err != nil || got.PID == nil {
			return false
		}
		pid = *got.PID
		return true
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, syscall.Kill(-pid, syscall.SIGKILL))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish after kill")
	}

	got, err := st.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, got.Status)
	assert.Nil(t, got.PID)
}

func TestExecuteAPIPostJob(t *testing.T) {
	r, st, _ := newTestRuntime(t)

	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		received = req.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	job := store.NewJob("test")
	job.Type = store.JobTypeAPIPost
	job.Command = srv.URL
	job.Meta = map[string]interface{}{"key": "value"}
	job.Status = store.StatusQueued
	require.NoError(t, st.Create(job))

	r.ExecuteJob(context.Background(), job.ID.String())

	got, err := st.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusDone, got.Status)
	assert.Equal(t, "application/json", received)
}

func TestExecuteAPIPostJobNon2xx(t *testing.T) {
	r, st, _ := newTestRuntime(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	job := createQueuedJob(t, st, store.JobTypeAPIPost, srv.URL)

	r.ExecuteJob(context.Background(), job.ID.String())

	got, err := st.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, got.Status)
}

func TestCommandLogIsLineBuffered(t *testing.T) {
	r, st, _ := newTestRuntime(t)
	job := createQueuedJob(t, st, store.JobTypeCommand, "echo first; echo second 1>&2")

	r.ExecuteJob(context.Background(), job.ID.String())

	content, err := os.ReadFile(filepath.Join(r.layout.JobLogsDir(), "job_"+job.ID.String()+"_retry_0.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "first")
	assert.Contains(t, string(content), "second")
}
