// Package pipeline normalizes and persists the raw documents an extraction
// attempt produced. Each document passes through dedup, date resolution,
// content shaping, artifact storage, and the final write; a failure on one
// document never aborts the rest of the batch.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lexharvest/docstream/internal/dateparse"
	"github.com/lexharvest/docstream/internal/extraction"
)

// minArtifactBytes rejects obviously-broken downloads (HTML error stubs and
// truncated transfers come in well under this).
const minArtifactBytes = 100

// Config controls content shaping.
type Config struct {
	// SummaryThreshold is the full-text length above which summarization
	// kicks in (default 1000 characters).
	SummaryThreshold int
	// SummaryMaxLength bounds summarizer output and the truncation fallback
	// (default 10000 characters).
	SummaryMaxLength int
}

// Pipeline persists the documents of one extraction result.
type Pipeline struct {
	documents  extraction.DocumentStore
	files      extraction.FileStore
	summarizer extraction.Summarizer
	clock      extraction.Clock
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Pipeline.
func New(
	documents extraction.DocumentStore,
	files extraction.FileStore,
	summarizer extraction.Summarizer,
	clock extraction.Clock,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if cfg.SummaryThreshold <= 0 {
		cfg.SummaryThreshold = 1000
	}
	if cfg.SummaryMaxLength <= 0 {
		cfg.SummaryMaxLength = 10000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		documents:  documents,
		files:      files,
		summarizer: summarizer,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// ProcessBatch runs every raw document through the pipeline in extractor
// order and returns the persisted set. Documents that fail to persist are
// logged and omitted; the returned count only reflects successful writes.
func (p *Pipeline) ProcessBatch(
	ctx context.Context,
	job extraction.Job,
	raws []extraction.RawDocument,
) []extraction.NormalizedDocument {
	out := make([]extraction.NormalizedDocument, 0, len(raws))
	for _, raw := range raws {
		doc, err := p.processOne(ctx, job, raw)
		if err != nil {
			p.logger.Warn("document persistence failed, dropping from result",
				zap.String("job_id", job.ID),
				zap.String("external_id", raw.ExternalID),
				zap.String("url", raw.URL),
				zap.Error(err),
			)
			continue
		}
		out = append(out, doc)
	}
	return out
}

func (p *Pipeline) processOne(
	ctx context.Context,
	job extraction.Job,
	raw extraction.RawDocument,
) (extraction.NormalizedDocument, error) {
	existing, err := p.documents.FindDuplicate(ctx, raw.ExternalID, raw.URL)
	if err != nil {
		return extraction.NormalizedDocument{}, fmt.Errorf("dedup lookup: %w", err)
	}
	if existing != nil {
		p.logger.Debug("duplicate document, returning existing record",
			zap.String("external_id", raw.ExternalID),
			zap.String("existing_id", existing.ID),
		)
		return *existing, nil
	}

	officialDate := resolveOfficialDate(raw)
	summary, err := p.shapeContent(ctx, raw)
	if err != nil {
		return extraction.NormalizedDocument{}, err
	}

	artifactPath := ""
	if len(raw.Artifact) > 0 {
		artifactPath, err = p.storeArtifact(ctx, raw)
		if err != nil {
			return extraction.NormalizedDocument{}, err
		}
	}

	input := extraction.DocumentInput{
		ExternalID:      raw.ExternalID,
		Source:          job.SourceID,
		URL:             raw.URL,
		Title:           raw.Title,
		Summary:         summary,
		FullText:        raw.FullText,
		ArtifactPath:    artifactPath,
		ExtractedAt:     p.clock.Now(),
		PublicationDate: officialDate,
		OfficialDate:    officialDate,
		LegalArea:       metadataString(raw.Metadata, "legal_area"),
		DocumentType:    metadataString(raw.Metadata, "document_type"),
		OwnerID:         job.OwnerID,
	}
	doc, err := p.documents.Save(ctx, input)
	if err != nil {
		return extraction.NormalizedDocument{}, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

// resolveOfficialDate walks the source fields in strict priority order: the
// structured publication-date text, then the document's own date field, then
// the extractor metadata entry (which may already carry a native time.Time).
// The first value the parser accepts wins; if none do, the date stays unset.
func resolveOfficialDate(raw extraction.RawDocument) *time.Time {
	if raw.PublicationDateText != "" {
		if t, ok := dateparse.Parse(raw.PublicationDateText); ok {
			return &t
		}
	}
	if raw.DateText != "" {
		if t, ok := dateparse.Parse(raw.DateText); ok {
			return &t
		}
	}
	if raw.Metadata != nil {
		switch v := raw.Metadata["date"].(type) {
		case time.Time:
			t := v.UTC()
			return &t
		case *time.Time:
			if v != nil {
				t := v.UTC()
				return &t
			}
		case string:
			if t, ok := dateparse.Parse(v); ok {
				return &t
			}
		}
	}
	return nil
}

// shapeContent returns the document summary. Short texts pass through as-is;
// long texts go to the summarizer, with hard truncation as the fallback when
// summarization fails.
func (p *Pipeline) shapeContent(ctx context.Context, raw extraction.RawDocument) (string, error) {
	text := raw.FullText
	if text == "" {
		text = raw.Content
	}
	if len(text) <= p.cfg.SummaryThreshold {
		return text, nil
	}
	if p.summarizer != nil {
		summary, err := p.summarizer.GenerateSummary(ctx, text, p.cfg.SummaryMaxLength)
		if err == nil && summary != "" {
			return clamp(summary, p.cfg.SummaryMaxLength), nil
		}
		if err != nil {
			p.logger.Warn("summarization failed, truncating raw text",
				zap.String("external_id", raw.ExternalID),
				zap.Error(err),
			)
		}
	}
	return clamp(text, p.cfg.SummaryMaxLength), nil
}

func (p *Pipeline) storeArtifact(ctx context.Context, raw extraction.RawDocument) (string, error) {
	if len(raw.Artifact) < minArtifactBytes {
		p.logger.Warn("artifact below minimum size, discarding",
			zap.String("external_id", raw.ExternalID),
			zap.Int("bytes", len(raw.Artifact)),
		)
		return "", nil
	}
	filename := artifactFilename(raw)
	path, err := p.files.Save(ctx, filename, raw.Artifact, contentTypeFor(filename))
	if err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}
	return path, nil
}

// artifactFilename derives a safe filename from the document's external id.
// Judicial ids use slashes (T-123/25), which map poorly to storage paths.
func artifactFilename(raw extraction.RawDocument) string {
	name := raw.ArtifactName
	if name == "" {
		safeID := strings.ReplaceAll(raw.ExternalID, "/", "-")
		name = safeID + inferExtension(raw.URL)
	}
	return strings.ReplaceAll(name, "/", "-")
}

func inferExtension(url string) string {
	switch {
	case strings.HasSuffix(url, ".docx"):
		return ".docx"
	case strings.HasSuffix(url, ".pdf"):
		return ".pdf"
	default:
		return ".rtf"
	}
}

func contentTypeFor(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(filename, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case strings.HasSuffix(filename, ".rtf"):
		return "application/rtf"
	default:
		return "application/octet-stream"
	}
}

func metadataString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	if s, ok := metadata[key].(string); ok {
		return s
	}
	return ""
}

func clamp(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
