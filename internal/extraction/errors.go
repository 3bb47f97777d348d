package extraction

import (
	"errors"
	"fmt"
)

// ErrJobNotFound signals that a job id is absent from the active set, the
// queue, and the history store.
var ErrJobNotFound = errors.New("job not found")

// SourceUnavailableError is returned by submit when the requested source is
// not registered or has been disabled. The job is never created.
type SourceUnavailableError struct {
	SourceID string
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %q is not available", e.SourceID)
}

// ExtractorNotFoundError signals an internal inconsistency: the source is
// registered but no extractor is bound to it. Fatal for the affected job.
type ExtractorNotFoundError struct {
	SourceID string
}

func (e *ExtractorNotFoundError) Error() string {
	return fmt.Sprintf("no extractor bound to source %q", e.SourceID)
}
