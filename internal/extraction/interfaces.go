package extraction

import (
	"context"
	"time"
)

// Extractor performs the site-specific retrieval for one source. The engine
// consumes it through this narrow start/cancel contract only.
//
// ExecuteExtraction must honor ctx cancellation at its safe points; there is
// no hard preemption beyond the orchestrator's context deadline.
type Extractor interface {
	ExecuteExtraction(ctx context.Context, jobID string, params map[string]any) (ExtractionResult, error)
	CancelExtraction()
}

// DocumentStore persists normalized documents and answers dedup queries.
type DocumentStore interface {
	// FindDuplicate returns the existing record matching either the external
	// ID or the URL, or nil when no record matches.
	FindDuplicate(ctx context.Context, externalID, url string) (*NormalizedDocument, error)
	Save(ctx context.Context, input DocumentInput) (NormalizedDocument, error)
}

// FileStore writes binary artifacts and returns a storage path.
type FileStore interface {
	Save(ctx context.Context, filename string, data []byte, contentType string) (string, error)
}

// Summarizer condenses long document text, bounded to maxLength characters.
type Summarizer interface {
	GenerateSummary(ctx context.Context, fullText string, maxLength int) (string, error)
}

// HistoryStore keeps the durable per-job record. All writes are best-effort:
// callers log failures and continue.
type HistoryStore interface {
	CreateRecord(ctx context.Context, record HistoryRecord) error
	UpdateRecord(ctx context.Context, record HistoryRecord) error
	GetRecord(ctx context.Context, jobID string) (HistoryRecord, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
