package extraction

import (
	"time"
)

// JobStatus represents the lifecycle state of an extraction job.
type JobStatus string

// Job status values. Retrying is an internal sub-state of running and is
// surfaced only through progress events, never through Job.Status.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Job is the lifecycle record for one extraction request, from submission to
// terminal state. Once the status is terminal the record is immutable.
type Job struct {
	ID          string          `json:"id"`
	SourceID    string          `json:"source_id"`
	OwnerID     string          `json:"owner_id,omitempty"`
	Parameters  map[string]any  `json:"parameters"`
	Status      JobStatus       `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      *JobResult      `json:"result,omitempty"`
	ErrorText   string          `json:"error_text,omitempty"`
}

// JobResult is recorded on a job once the persistence pipeline has run. Its
// Documents hold the normalized set, not the raw extractor output.
type JobResult struct {
	Documents          []NormalizedDocument `json:"documents"`
	TotalFound         int                  `json:"total_found"`
	DocumentsProcessed int                  `json:"documents_processed"`
	ExtractionSeconds  float64              `json:"extraction_seconds"`
}

// ExtractionResult is produced by one extractor attempt. It is immutable after
// creation; the documents slice keeps the order the extractor produced.
type ExtractionResult struct {
	Success           bool
	Documents         []RawDocument
	TotalFound        int
	ExtractionSeconds float64
	Errors            []string
}

// RawDocument is the transient form a source extractor emits. It is consumed
// by the persistence pipeline and discarded.
type RawDocument struct {
	// ExternalID is the source-assigned identifier. It is unique within a
	// source but not across sources.
	ExternalID string
	URL        string
	Title      string
	Content    string
	FullText   string
	// Artifact optionally carries a binary document (PDF/RTF/DOCX bytes).
	Artifact     []byte
	ArtifactName string
	// PublicationDateText is the structured publication-date field, when the
	// source exposed one. Tried first during date resolution.
	PublicationDateText string
	// DateText is the document's own date field, tried second.
	DateText string
	// Metadata is the extractor's free-form bag. A "date" entry may hold a
	// native time.Time or yet another date string; it is the last resort
	// during date resolution.
	Metadata map[string]any
}

// DocumentStatus is the review state of a persisted document.
type DocumentStatus string

// Document review states.
const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusApproved DocumentStatus = "approved"
	DocumentStatusRejected DocumentStatus = "rejected"
)

// NormalizedDocument is the persisted form of an extracted document. Identity
// for deduplication is the (ExternalID, URL) pair.
type NormalizedDocument struct {
	ID              string         `json:"id"`
	ExternalID      string         `json:"external_id"`
	Source          string         `json:"source"`
	URL             string         `json:"url"`
	Title           string         `json:"title"`
	Summary         string         `json:"summary"`
	FullText        string         `json:"full_text,omitempty"`
	ArtifactPath    string         `json:"artifact_path,omitempty"`
	ExtractedAt     time.Time      `json:"extracted_at"`
	PublicationDate *time.Time     `json:"publication_date,omitempty"`
	OfficialDate    *time.Time     `json:"official_date,omitempty"`
	LegalArea       string         `json:"legal_area,omitempty"`
	DocumentType    string         `json:"document_type,omitempty"`
	Status          DocumentStatus `json:"status"`
	OwnerID         string         `json:"owner_id,omitempty"`
}

// DocumentInput carries the fields the pipeline assembles before a save. The
// store assigns the record ID.
type DocumentInput struct {
	ExternalID      string
	Source          string
	URL             string
	Title           string
	Summary         string
	FullText        string
	ArtifactPath    string
	ExtractedAt     time.Time
	PublicationDate *time.Time
	OfficialDate    *time.Time
	LegalArea       string
	DocumentType    string
	OwnerID         string
}

// DocumentPreview is the truncated per-document view stored in job history.
type DocumentPreview struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// HistoryRecord is the durable, best-effort record kept per job.
type HistoryRecord struct {
	ID                 string
	SourceID           string
	OwnerID            string
	Status             string
	ParametersJSON     string
	DocumentsFound     int
	DocumentsProcessed int
	ExecutionSeconds   float64
	StartedAt          *time.Time
	CompletedAt        *time.Time
	ErrorText          string
	ResultPreviewJSON  string
}

// SourceStats aggregates per-source health counters kept by the registry.
type SourceStats struct {
	SourceID      string     `json:"source_id"`
	Enabled       bool       `json:"enabled"`
	JobsStarted   int64      `json:"jobs_started"`
	JobsCompleted int64      `json:"jobs_completed"`
	JobsFailed    int64      `json:"jobs_failed"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
}

// SystemStats is the snapshot returned by the stats operation.
type SystemStats struct {
	Sources        []SourceStats `json:"sources"`
	ActiveJobCount int           `json:"active_job_count"`
	QueuedJobCount int           `json:"queued_job_count"`
	SystemHealth   string        `json:"system_health"`
}
