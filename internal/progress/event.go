package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the lifecycle milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageQueued    Stage = "JOB_QUEUED"
	StageStart     Stage = "JOB_START"
	StageRetry     Stage = "JOB_RETRY"
	StageProgress  Stage = "JOB_PROGRESS"
	StageDone      Stage = "JOB_DONE"
	StageError     Stage = "JOB_ERROR"
	StageCancelled Stage = "JOB_CANCELLED"
)

// Public status vocabulary delivered to subscribers. Internal job statuses
// are translated to this smaller set before events leave the system.
const (
	PublicPending    = "pending"
	PublicProcessing = "processing"
	PublicCompleted  = "completed"
	PublicError      = "error"
)

// Event captures a single job lifecycle or progress update.
type Event struct {
	// JobID identifies the job run.
	JobID string `json:"job_id"`
	// OwnerID scopes delivery to the submitting user; may be empty.
	OwnerID string `json:"owner_id,omitempty"`
	// SourceID names the extraction source the job targets.
	SourceID string `json:"source_id,omitempty"`
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time `json:"ts"`
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage `json:"stage"`
	// Percent is the coarse completion estimate, 0-100.
	Percent int `json:"progress_percent"`
	// Message carries a human-readable description of the update.
	Message string `json:"message,omitempty"`
	// DocumentsFound and DocumentsProcessed track pipeline throughput.
	DocumentsFound     int `json:"documents_found,omitempty"`
	DocumentsProcessed int `json:"documents_processed,omitempty"`
	// Dur captures execution latency for terminal events.
	Dur time.Duration `json:"-"`
	// Note lets emitters attach low-volume context (e.g. error text).
	Note string `json:"note,omitempty"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.JobID == "" {
		return errors.New("job id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageQueued, StageStart, StageRetry, StageProgress, StageDone, StageError, StageCancelled:
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Percent < 0 || e.Percent > 100 {
		return fmt.Errorf("percent %d out of range", e.Percent)
	}
	return nil
}

// PublicStatus translates the stage into the public status vocabulary.
func (e Event) PublicStatus() string {
	switch e.Stage {
	case StageQueued:
		return PublicPending
	case StageStart, StageRetry, StageProgress:
		return PublicProcessing
	case StageDone:
		return PublicCompleted
	default:
		return PublicError
	}
}
