package supervisor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// PIDFile manages a pid file for single-instance enforcement of one
// consumer (or the server itself).
type PIDFile struct {
	path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// WritePID records a process id, replacing any stale file. Returns an
// error if the recorded process is still alive.
func (p *PIDFile) WritePID(pid int) error {
	if existing, err := ReadPID(p.path); err == nil && existing > 0 && IsProcessRunning(existing) {
		return fmt.Errorf("process already running with PID %d", existing)
	}
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Acquire writes the current process PID to the file.
func (p *PIDFile) Acquire() error {
	return p.WritePID(os.Getpid())
}

// Release removes the PID file. Safe to call multiple times.
func (p *PIDFile) Release() error {
	err := os.Remove(p.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Path returns the pid file's location.
func (p *PIDFile) Path() string {
	return p.path
}

// Alive reports whether the recorded process exists.
func (p *PIDFile) Alive() bool {
	pid, err := ReadPID(p.path)
	if err != nil || pid <= 0 {
		return false
	}
	return IsProcessRunning(pid)
}

// IsProcessRunning checks if a process with the given PID exists.
// Signal 0 delivers nothing but performs the existence check.
func IsProcessRunning(pid int) bool {
	return syscall.Kill(pid, syscall.Signal(0)) == nil
}

// ReadPID reads the PID from a file.
func ReadPID(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pidStr := strings.TrimSpace(string(content))
	if pidStr == "" {
		return 0, fmt.Errorf("PID file is empty")
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}

	return pid, nil
}
