package paths

import (
	"fmt"
	"path/filepath"
)

// Layout describes the on-disk data layout rooted at a single data directory.
//
//	data/jobq.db                      relational store (jobs, schedulers)
//	data/consumer__{queue}.db         durable task queue, one per queue
//	data/logs/consumer__{queue}.log   consumer stdout/stderr
//	data/logs/consumer__{queue}.pid   consumer pid file
//	data/logs/jobs/job_{id}_retry_{n}.txt
type Layout struct {
	DataDir string
}

// New returns a Layout rooted at dataDir.
func New(dataDir string) Layout {
	return Layout{DataDir: dataDir}
}

// StoreDB is the path of the relational database.
func (l Layout) StoreDB() string {
	return filepath.Join(l.DataDir, "jobq.db")
}

// QueueDB is the path of the durable task queue for a named queue.
func (l Layout) QueueDB(queue string) string {
	return filepath.Join(l.DataDir, fmt.Sprintf("consumer__%s.db", queue))
}

// LogsDir is the directory holding consumer logs and pid files.
func (l Layout) LogsDir() string {
	return filepath.Join(l.DataDir, "logs")
}

// ConsumerLog is the stdout/stderr log of a consumer process.
func (l Layout) ConsumerLog(queue string) string {
	return filepath.Join(l.LogsDir(), fmt.Sprintf("consumer__%s.log", queue))
}

// ConsumerPIDFile sits next to the consumer log with a .pid suffix.
func (l Layout) ConsumerPIDFile(queue string) string {
	return filepath.Join(l.LogsDir(), fmt.Sprintf("consumer__%s.pid", queue))
}

// JobLogsDir is the directory holding per-job log files.
func (l Layout) JobLogsDir() string {
	return filepath.Join(l.LogsDir(), "jobs")
}

// JobLog is the log file for one job attempt.
func (l Layout) JobLog(jobID string, retry int) string {
	return filepath.Join(l.JobLogsDir(), fmt.Sprintf("job_%s_retry_%d.txt", jobID, retry))
}
