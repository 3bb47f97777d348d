package summarize

import "context"

// Noop returns the input bounded to maxLength without calling any external
// service. Used when no summarizer endpoint is configured.
type Noop struct{}

// GenerateSummary implements extraction.Summarizer.
func (Noop) GenerateSummary(_ context.Context, fullText string, maxLength int) (string, error) {
	if maxLength > 0 && len(fullText) > maxLength {
		return fullText[:maxLength], nil
	}
	return fullText, nil
}
