package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/mpreston/jobq/internal/store"
)

// runCommand executes a type=command job through sh -c. The child gets
// its own process group so a kill can take out the whole pipeline, and
// its pid is recorded on the job while it runs. Merged stdout/stderr is
// streamed line by line into the job's log file.
func (r *Runtime) runCommand(ctx context.Context, job *store.Job) error {
	logFile, err := r.openJobLog(job)
	if err != nil {
		return err
	}
	defer logFile.Close()

	cmd := exec.Command("sh", "-c", job.Command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}

	pid := cmd.Process.Pid
	if _, err := r.store.Update(job.ID, store.JobUpdate{PID: &pid}); err != nil {
		r.log.WithField("job_id", job.ID).WithError(err).Error("failed to record pid")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			logFile.WriteString(scanner.Text() + "\n")
		}
	}()

	waitErr := cmd.Wait()
	pw.Close()
	<-done

	if waitErr == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() && ws.Signal() == syscall.SIGKILL {
			return errKilled
		}
		return fmt.Errorf("command exited with code %d", exitErr.ExitCode())
	}
	return fmt.Errorf("command failed: %w", waitErr)
}
