package supervisor

import (
	"fmt"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mpreston/jobq/internal/store"
)

// KillJob terminates a job's process and returns the job to pending so
// it can be re-queued later. SIGKILL goes to the process group recorded
// on the job; a job without a pid just transitions. Terminal jobs are
// rejected by the store's transition check.
func KillJob(st *store.Store, id uuid.UUID) (*store.Job, error) {
	job, err := st.Get(id)
	if err != nil {
		return nil, err
	}

	if job.PID != nil {
		pid := *job.PID
		if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
			if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
				return nil, fmt.Errorf("failed to kill job process: %w", err)
			}
		}
		logrus.WithFields(logrus.Fields{
			"job_id": id,
			"pid":    pid,
		}).Info("killed job process")
	}

	pending := store.StatusPending
	return st.Update(id, store.JobUpdate{
		Status:   &pending,
		ClearPID: true,
	})
}
