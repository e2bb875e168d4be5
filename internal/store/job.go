package store

import (
	"time"

	"github.com/google/uuid"
)

// JobType selects the executor for a job.
type JobType string

const (
	JobTypeCommand JobType = "command"  // shell command via sh -c
	JobTypeAPIPost JobType = "api_post" // HTTP POST to the command URL
	JobTypeScript  JobType = "script"   // named script from the registry
)

// Priority orders queued jobs. Lower rank dispatches first.
type Priority string

const (
	PriorityHighest Priority = "highest"
	PriorityHigh    Priority = "high"
	PriorityNormal  Priority = "normal"
	PriorityLow     Priority = "low"
	PriorityLowest  Priority = "lowest"
)

// priorityRank maps priorities to their dispatch order.
var priorityRank = map[Priority]int{
	PriorityHighest: 0,
	PriorityHigh:    1,
	PriorityNormal:  2,
	PriorityLow:     3,
	PriorityLowest:  4,
}

// Rank returns the dispatch order of p. Unknown priorities sort last.
func (p Priority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// JobStatus is a job's lifecycle state.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusDone      JobStatus = "done"
	StatusFailed    JobStatus = "failed"
	StatusError     JobStatus = "error"
	StatusCancelled JobStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusQueued, StatusRunning, StatusDone,
		StatusFailed, StatusError, StatusCancelled:
		return true
	}
	return false
}

// legalTransitions is the status transition graph. Cancellation is legal
// from any state and handled separately in CanTransition.
var legalTransitions = map[JobStatus][]JobStatus{
	StatusPending: {StatusQueued},
	StatusQueued:  {StatusRunning, StatusPending},
	StatusRunning: {StatusDone, StatusFailed, StatusError, StatusPending},
}

// CanTransition reports whether from -> to is a legal transition.
// queued -> pending covers the user-kill path for jobs that never
// recorded a pid.
func CanTransition(from, to JobStatus) bool {
	if to == StatusCancelled {
		return true
	}
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Recurrence values for template jobs.
const (
	RecurrenceHourly = "hourly"
	RecurrenceDaily  = "daily"
)

// Job is the central entity of the queue.
type Job struct {
	ID         uuid.UUID              `json:"id"`
	EnvName    string                 `json:"env_name"`
	QueueName  string                 `json:"queue_name"`
	Name       string                 `json:"name"`
	Type       JobType                `json:"type"`
	Command    string                 `json:"command"`
	Meta       map[string]interface{} `json:"meta"`
	Priority   Priority               `json:"priority"`
	Status     JobStatus              `json:"status"`
	PID        *int                   `json:"pid"`
	RetryCount int                    `json:"retry_count"`
	CreatedAt  time.Time              `json:"created_at"`
	Recurrence *string                `json:"recurrence"`
	Archived   bool                   `json:"archived"`
}

// IsTemplate reports whether the job is a recurrence template. Templates
// only spawn fresh instances; their own status never advances past queued.
func (j *Job) IsTemplate() bool {
	return j.Recurrence != nil && *j.Recurrence != ""
}

// NewJob returns a job with a fresh id and the model defaults applied.
func NewJob(envName string) *Job {
	return &Job{
		ID:        uuid.New(),
		EnvName:   envName,
		QueueName: "default",
		Type:      JobTypeCommand,
		Meta:      map[string]interface{}{},
		Priority:  PriorityNormal,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// SpawnInstance derives a fresh, executable job from a recurrence
// template: new id, fresh timestamp, no recurrence, queued.
func (j *Job) SpawnInstance() *Job {
	inst := *j
	inst.ID = uuid.New()
	inst.Status = StatusQueued
	inst.Recurrence = nil
	inst.CreatedAt = time.Now().UTC()
	inst.RetryCount = 0
	inst.PID = nil
	if j.Meta != nil {
		inst.Meta = make(map[string]interface{}, len(j.Meta))
		for k, v := range j.Meta {
			inst.Meta[k] = v
		}
	}
	return &inst
}

// Validate checks a job before insertion.
func (j *Job) Validate() error {
	switch j.Type {
	case JobTypeCommand, JobTypeAPIPost, JobTypeScript:
	default:
		return &ValidationError{Msg: "invalid job type: " + string(j.Type)}
	}
	if !j.Priority.Valid() {
		return &ValidationError{Msg: "invalid priority: " + string(j.Priority)}
	}
	if !j.Status.Valid() {
		return &ValidationError{Msg: "invalid status: " + string(j.Status)}
	}
	if j.QueueName == "" {
		return &ValidationError{Msg: "queue_name must not be empty"}
	}
	if j.Recurrence != nil && *j.Recurrence != RecurrenceHourly && *j.Recurrence != RecurrenceDaily {
		return &ValidationError{Msg: "invalid recurrence: " + *j.Recurrence}
	}
	if j.RetryCount < 0 {
		return &ValidationError{Msg: "retry_count must not be negative"}
	}
	return nil
}

// JobUpdate is a partial patch; nil fields are left unchanged.
type JobUpdate struct {
	EnvName    *string                `json:"env_name,omitempty"`
	QueueName  *string                `json:"queue_name,omitempty"`
	Name       *string                `json:"name,omitempty"`
	Command    *string                `json:"command,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
	Priority   *Priority              `json:"priority,omitempty"`
	Status     *JobStatus             `json:"status,omitempty"`
	PID        *int                   `json:"pid,omitempty"`
	ClearPID   bool                   `json:"-"`
	RetryCount *int                   `json:"retry_count,omitempty"`
	Recurrence *string                `json:"recurrence,omitempty"`
	Archived   *bool                  `json:"archived,omitempty"`
}
