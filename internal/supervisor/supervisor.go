// Package supervisor starts, stops, and watches the out-of-process
// consumer workers, one per configured queue. Liveness is tracked
// through pid files next to each consumer's log; the supervisor holds
// no in-memory process handles, so it survives server restarts.
package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mpreston/jobq/internal/config"
	"github.com/mpreston/jobq/internal/events"
	"github.com/mpreston/jobq/internal/paths"
)

// Supervisor manages the consumer processes for all configured queues.
type Supervisor struct {
	cfg    *config.Config
	layout paths.Layout
	bus    *events.Bus
	log    *logrus.Entry
}

// New creates a supervisor over the configured queues.
func New(cfg *config.Config, layout paths.Layout, bus *events.Bus) *Supervisor {
	return &Supervisor{
		cfg:    cfg,
		layout: layout,
		bus:    bus,
		log:    logrus.WithField("component", "supervisor"),
	}
}

// StatusMap reports, per configured queue, whether its consumer process
// is alive.
func (s *Supervisor) StatusMap() map[string]bool {
	status := make(map[string]bool, len(s.cfg.Queues))
	for _, q := range s.cfg.Queues {
		status[q.Name] = NewPIDFile(s.layout.ConsumerPIDFile(q.Name)).Alive()
	}
	return status
}

// Start launches the consumer for one queue as a detached child of the
// current executable. The child gets its own process group so terminal
// signals aimed at the server never reach it. No-op if the consumer is
// already alive.
func (s *Supervisor) Start(queue string) error {
	if !s.cfg.HasQueue(queue) {
		return fmt.Errorf("unknown queue: %q", queue)
	}

	pidFile := NewPIDFile(s.layout.ConsumerPIDFile(queue))
	if pidFile.Alive() {
		s.log.WithField("queue", queue).Debug("consumer already running")
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	if err := os.MkdirAll(s.layout.LogsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	logFile, err := os.OpenFile(s.layout.ConsumerLog(queue), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open consumer log: %w", err)
	}
	defer logFile.Close()

	args := []string{"consumer", "--queue", queue}
	if s.cfg.Path != "" {
		args = append(args, "--config", s.cfg.Path)
	}
	cmd := exec.Command(exe, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	pid := cmd.Process.Pid
	if err := pidFile.WritePID(pid); err != nil {
		s.log.WithField("queue", queue).WithError(err).Error("failed to write consumer pid file")
	}

	if err := cmd.Process.Release(); err != nil {
		s.log.WithField("queue", queue).WithError(err).Warn("failed to release consumer process")
	}

	s.log.WithFields(logrus.Fields{
		"queue": queue,
		"pid":   pid,
	}).Info("consumer started")

	s.broadcastStatus()
	return nil
}

// Stop shuts down the consumer for one queue: SIGTERM first so the
// worker loop can exit cleanly, then SIGKILL to the consumer's process
// group for stragglers. A running job lives in its own process group
// and is not signaled here; once its process exits, the cleanup pass
// reaps the orphaned row. No-op if nothing is running.
func (s *Supervisor) Stop(queue string) error {
	if !s.cfg.HasQueue(queue) {
		return fmt.Errorf("unknown queue: %q", queue)
	}

	pidFile := NewPIDFile(s.layout.ConsumerPIDFile(queue))
	pid, err := ReadPID(pidFile.Path())
	if err != nil || pid <= 0 {
		s.log.WithField("queue", queue).Debug("no consumer pid recorded")
		return nil
	}

	if IsProcessRunning(pid) {
		syscall.Kill(pid, syscall.SIGTERM)
		for i := 0; i < 10 && IsProcessRunning(pid); i++ {
			time.Sleep(50 * time.Millisecond)
		}
	}
	if IsProcessRunning(pid) {
		if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
			// Fall back to the single process if the group is gone.
			if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
				return fmt.Errorf("failed to kill consumer: %w", err)
			}
		}
		// Give the kernel a moment to reap before reporting status.
		for i := 0; i < 10 && IsProcessRunning(pid); i++ {
			time.Sleep(50 * time.Millisecond)
		}
	}

	if err := pidFile.Release(); err != nil {
		s.log.WithField("queue", queue).WithError(err).Warn("failed to remove consumer pid file")
	}

	s.log.WithFields(logrus.Fields{
		"queue": queue,
		"pid":   pid,
	}).Info("consumer stopped")

	s.broadcastStatus()
	return nil
}

// StartAll starts every configured consumer that is not already alive.
// Used when the server boots with start_consumers_on_boot set.
func (s *Supervisor) StartAll() error {
	var firstErr error
	for _, q := range s.cfg.Queues {
		if err := s.Start(q.Name); err != nil {
			s.log.WithField("queue", q.Name).WithError(err).Error("failed to start consumer")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// StopAll stops every configured consumer.
func (s *Supervisor) StopAll() error {
	var firstErr error
	for _, q := range s.cfg.Queues {
		if err := s.Stop(q.Name); err != nil {
			s.log.WithField("queue", q.Name).WithError(err).Error("failed to stop consumer")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// broadcastStatus publishes the current consumer status map.
func (s *Supervisor) broadcastStatus() {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		Type:    events.ConsumerStatusChanged,
		Payload: s.StatusMap(),
	})
}
