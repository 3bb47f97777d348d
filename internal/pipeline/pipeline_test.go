package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lexharvest/docstream/internal/extraction"
)

type fakeDocumentStore struct {
	existing map[string]extraction.NormalizedDocument
	saved    []extraction.DocumentInput
	failOn   string
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{existing: map[string]extraction.NormalizedDocument{}}
}

func (s *fakeDocumentStore) FindDuplicate(_ context.Context, externalID, url string) (*extraction.NormalizedDocument, error) {
	for _, doc := range s.existing {
		if doc.ExternalID == externalID || doc.URL == url {
			d := doc
			return &d, nil
		}
	}
	return nil, nil
}

func (s *fakeDocumentStore) Save(_ context.Context, input extraction.DocumentInput) (extraction.NormalizedDocument, error) {
	if s.failOn != "" && input.ExternalID == s.failOn {
		return extraction.NormalizedDocument{}, errors.New("write rejected")
	}
	doc := extraction.NormalizedDocument{
		ID:              "doc-" + input.ExternalID,
		ExternalID:      input.ExternalID,
		Source:          input.Source,
		URL:             input.URL,
		Title:           input.Title,
		Summary:         input.Summary,
		FullText:        input.FullText,
		ArtifactPath:    input.ArtifactPath,
		ExtractedAt:     input.ExtractedAt,
		PublicationDate: input.PublicationDate,
		OfficialDate:    input.OfficialDate,
		LegalArea:       input.LegalArea,
		DocumentType:    input.DocumentType,
		Status:          extraction.DocumentStatusPending,
		OwnerID:         input.OwnerID,
	}
	s.existing[doc.ID] = doc
	s.saved = append(s.saved, input)
	return doc, nil
}

type fakeFileStore struct {
	saved map[string][]byte
	err   error
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{saved: map[string][]byte{}}
}

func (s *fakeFileStore) Save(_ context.Context, filename string, data []byte, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved[filename] = data
	return "mem://" + filename, nil
}

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
}

func (s *fakeSummarizer) GenerateSummary(_ context.Context, _ string, _ int) (string, error) {
	s.calls++
	return s.summary, s.err
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func testJob() extraction.Job {
	return extraction.Job{ID: "boe-1-abc", SourceID: "boe", OwnerID: "owner-1"}
}

func newPipeline(docs *fakeDocumentStore, files *fakeFileStore, sum extraction.Summarizer) *Pipeline {
	return New(docs, files, sum, fixedClock{at: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}, Config{}, zap.NewNop())
}

func TestProcessBatchPersistsDocuments(t *testing.T) {
	t.Parallel()

	docs := newFakeDocumentStore()
	p := newPipeline(docs, newFakeFileStore(), nil)

	out := p.ProcessBatch(context.Background(), testJob(), []extraction.RawDocument{
		{ExternalID: "T-100/25", URL: "https://example.test/t-100", Title: "Sentencia T-100", FullText: "cuerpo"},
		{ExternalID: "T-101/25", URL: "https://example.test/t-101", Title: "Sentencia T-101", FullText: "cuerpo"},
	})

	require.Len(t, out, 2)
	require.Len(t, docs.saved, 2)
	require.Equal(t, "boe", docs.saved[0].Source)
	require.Equal(t, "owner-1", docs.saved[0].OwnerID)
	require.Equal(t, extraction.DocumentStatusPending, out[0].Status)
}

func TestProcessBatchDedupReturnsExisting(t *testing.T) {
	t.Parallel()

	docs := newFakeDocumentStore()
	docs.existing["doc-old"] = extraction.NormalizedDocument{
		ID:         "doc-old",
		ExternalID: "T-100/25",
		URL:        "https://example.test/t-100",
		Title:      "original title",
	}
	p := newPipeline(docs, newFakeFileStore(), nil)

	out := p.ProcessBatch(context.Background(), testJob(), []extraction.RawDocument{
		{ExternalID: "T-100/25", URL: "https://example.test/elsewhere", Title: "new title"},
	})

	require.Len(t, out, 1)
	require.Equal(t, "doc-old", out[0].ID)
	require.Equal(t, "original title", out[0].Title, "existing record must not be mutated")
	require.Empty(t, docs.saved)
}

func TestProcessBatchDedupMatchesURLAlone(t *testing.T) {
	t.Parallel()

	docs := newFakeDocumentStore()
	docs.existing["doc-old"] = extraction.NormalizedDocument{
		ID:  "doc-old",
		URL: "https://example.test/t-100",
	}
	p := newPipeline(docs, newFakeFileStore(), nil)

	out := p.ProcessBatch(context.Background(), testJob(), []extraction.RawDocument{
		{ExternalID: "different-id", URL: "https://example.test/t-100"},
	})

	require.Len(t, out, 1)
	require.Equal(t, "doc-old", out[0].ID)
	require.Empty(t, docs.saved)
}

func TestProcessBatchIsolatesPerDocumentFailures(t *testing.T) {
	t.Parallel()

	docs := newFakeDocumentStore()
	docs.failOn = "T-101/25"
	p := newPipeline(docs, newFakeFileStore(), nil)

	out := p.ProcessBatch(context.Background(), testJob(), []extraction.RawDocument{
		{ExternalID: "T-100/25", URL: "https://example.test/t-100"},
		{ExternalID: "T-101/25", URL: "https://example.test/t-101"},
		{ExternalID: "T-102/25", URL: "https://example.test/t-102"},
	})

	require.Len(t, out, 2)
	require.Equal(t, "T-100/25", out[0].ExternalID)
	require.Equal(t, "T-102/25", out[1].ExternalID)
}

func TestResolveOfficialDatePrecedence(t *testing.T) {
	t.Parallel()

	native := time.Date(2023, 3, 3, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		raw  extraction.RawDocument
		want *time.Time
	}{
		{
			name: "publication date wins",
			raw: extraction.RawDocument{
				PublicationDateText: "2025-12-19",
				DateText:            "01/01/2020",
				Metadata:            map[string]any{"date": native},
			},
			want: timePtr(2025, 12, 19),
		},
		{
			name: "falls through unparseable publication date",
			raw: extraction.RawDocument{
				PublicationDateText: "no es una fecha",
				DateText:            "19 de diciembre de 2025",
			},
			want: timePtr(2025, 12, 19),
		},
		{
			name: "metadata time.Time as last resort",
			raw: extraction.RawDocument{
				Metadata: map[string]any{"date": native},
			},
			want: &native,
		},
		{
			name: "metadata string as last resort",
			raw: extraction.RawDocument{
				Metadata: map[string]any{"date": "19/12/2025"},
			},
			want: timePtr(2025, 12, 19),
		},
		{
			name: "nothing parseable leaves date unset",
			raw: extraction.RawDocument{
				PublicationDateText: "???",
				Metadata:            map[string]any{"date": 42},
			},
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := resolveOfficialDate(tc.raw)
			if tc.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.True(t, tc.want.Equal(*got))
		})
	}
}

func TestShapeContentShortTextPassesThrough(t *testing.T) {
	t.Parallel()

	sum := &fakeSummarizer{summary: "should not be used"}
	p := newPipeline(newFakeDocumentStore(), newFakeFileStore(), sum)

	got, err := p.shapeContent(context.Background(), extraction.RawDocument{FullText: "short text"})
	require.NoError(t, err)
	require.Equal(t, "short text", got)
	require.Zero(t, sum.calls)
}

func TestShapeContentSummarizesLongText(t *testing.T) {
	t.Parallel()

	sum := &fakeSummarizer{summary: "resumen"}
	p := newPipeline(newFakeDocumentStore(), newFakeFileStore(), sum)

	long := strings.Repeat("a", 1001)
	got, err := p.shapeContent(context.Background(), extraction.RawDocument{FullText: long})
	require.NoError(t, err)
	require.Equal(t, "resumen", got)
	require.Equal(t, 1, sum.calls)
}

func TestShapeContentTruncatesOnSummarizerFailure(t *testing.T) {
	t.Parallel()

	sum := &fakeSummarizer{err: errors.New("model unavailable")}
	p := newPipeline(newFakeDocumentStore(), newFakeFileStore(), sum)

	long := strings.Repeat("b", 15000)
	got, err := p.shapeContent(context.Background(), extraction.RawDocument{FullText: long})
	require.NoError(t, err)
	require.Len(t, got, 10000)
	require.Equal(t, strings.Repeat("b", 10000), got)
}

func TestShapeContentTruncatesWithoutSummarizer(t *testing.T) {
	t.Parallel()

	p := newPipeline(newFakeDocumentStore(), newFakeFileStore(), nil)

	long := strings.Repeat("c", 12000)
	got, err := p.shapeContent(context.Background(), extraction.RawDocument{FullText: long})
	require.NoError(t, err)
	require.Len(t, got, 10000)
}

func TestStoreArtifactSanitizesFilename(t *testing.T) {
	t.Parallel()

	files := newFakeFileStore()
	docs := newFakeDocumentStore()
	p := newPipeline(docs, files, nil)

	artifact := make([]byte, 200)
	out := p.ProcessBatch(context.Background(), testJob(), []extraction.RawDocument{
		{
			ExternalID: "T-123/25",
			URL:        "https://example.test/docs/T-123.docx",
			Artifact:   artifact,
		},
	})

	require.Len(t, out, 1)
	require.Contains(t, files.saved, "T-123-25.docx")
	require.Equal(t, "mem://T-123-25.docx", out[0].ArtifactPath)
}

func TestStoreArtifactDefaultsToRTF(t *testing.T) {
	t.Parallel()

	files := newFakeFileStore()
	p := newPipeline(newFakeDocumentStore(), files, nil)

	out := p.ProcessBatch(context.Background(), testJob(), []extraction.RawDocument{
		{ExternalID: "A-1", URL: "https://example.test/view?id=1", Artifact: make([]byte, 150)},
	})

	require.Len(t, out, 1)
	require.Contains(t, files.saved, "A-1.rtf")
}

func TestStoreArtifactDiscardsTinyPayloads(t *testing.T) {
	t.Parallel()

	files := newFakeFileStore()
	p := newPipeline(newFakeDocumentStore(), files, nil)

	out := p.ProcessBatch(context.Background(), testJob(), []extraction.RawDocument{
		{ExternalID: "A-1", URL: "https://example.test/a-1", Artifact: []byte("<html>error</html>")},
	})

	require.Len(t, out, 1)
	require.Empty(t, files.saved)
	require.Empty(t, out[0].ArtifactPath)
}

func TestProcessBatchDropsDocumentOnArtifactFailure(t *testing.T) {
	t.Parallel()

	files := newFakeFileStore()
	files.err = errors.New("bucket unreachable")
	p := newPipeline(newFakeDocumentStore(), files, nil)

	out := p.ProcessBatch(context.Background(), testJob(), []extraction.RawDocument{
		{ExternalID: "A-1", URL: "https://example.test/a-1", Artifact: make([]byte, 500)},
		{ExternalID: "A-2", URL: "https://example.test/a-2"},
	})

	require.Len(t, out, 1)
	require.Equal(t, "A-2", out[0].ExternalID)
}

func timePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}
