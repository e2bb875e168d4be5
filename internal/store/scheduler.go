package store

import (
	"github.com/google/uuid"
)

// TriggerType selects when a scheduler produces jobs.
type TriggerType string

const (
	TriggerOnStart TriggerType = "on_start" // once per engine boot
	TriggerRepeat  TriggerType = "repeat"   // every repeat_every_seconds
)

// Valid reports whether t is a known trigger type.
func (t TriggerType) Valid() bool {
	return t == TriggerOnStart || t == TriggerRepeat
}

// JobScheduler is a persistent trigger producing jobs from a template.
type JobScheduler struct {
	ID                 uuid.UUID              `json:"id"`
	EnvName            string                 `json:"env_name"`
	Name               string                 `json:"name"`
	Description        string                 `json:"description"`
	TriggerType        TriggerType            `json:"trigger_type"`
	RepeatEverySeconds *int                   `json:"repeat_every_seconds"`
	JobTemplate        map[string]interface{} `json:"job_template"`
	Enabled            bool                   `json:"enabled"`
	LastRun            *int64                 `json:"last_run"`
}

// NewJobScheduler returns a scheduler with a fresh id and defaults.
func NewJobScheduler(envName string) *JobScheduler {
	return &JobScheduler{
		ID:          uuid.New(),
		EnvName:     envName,
		TriggerType: TriggerOnStart,
		JobTemplate: map[string]interface{}{},
		Enabled:     true,
	}
}

// DueAt reports whether a repeat scheduler is due at the given unix time.
func (s *JobScheduler) DueAt(now int64) bool {
	if !s.Enabled || s.TriggerType != TriggerRepeat || s.RepeatEverySeconds == nil {
		return false
	}
	if s.LastRun == nil {
		return true
	}
	return now-*s.LastRun >= int64(*s.RepeatEverySeconds)
}

// Validate checks a scheduler before insertion.
func (s *JobScheduler) Validate() error {
	if s.EnvName == "" {
		return &ValidationError{Msg: "env_name must not be empty"}
	}
	if !s.TriggerType.Valid() {
		return &ValidationError{Msg: "invalid trigger_type: " + string(s.TriggerType)}
	}
	if s.TriggerType == TriggerRepeat {
		if s.RepeatEverySeconds == nil || *s.RepeatEverySeconds <= 0 {
			return &ValidationError{Msg: "repeat schedulers require a positive repeat_every_seconds"}
		}
	}
	return nil
}

// SchedulerUpdate is a partial patch; nil fields are left unchanged.
type SchedulerUpdate struct {
	EnvName            *string                `json:"env_name,omitempty"`
	Name               *string                `json:"name,omitempty"`
	Description        *string                `json:"description,omitempty"`
	TriggerType        *TriggerType           `json:"trigger_type,omitempty"`
	RepeatEverySeconds *int                   `json:"repeat_every_seconds,omitempty"`
	JobTemplate        map[string]interface{} `json:"job_template,omitempty"`
	Enabled            *bool                  `json:"enabled,omitempty"`
	LastRun            *int64                 `json:"last_run,omitempty"`
}
