package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/lexharvest/docstream/internal/extraction"
)

func TestFindDuplicateReturnsRecord(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewDocumentStore(mock)
	require.NoError(t, err)

	extractedAt := time.Unix(1700000000, 0).UTC()
	official := time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{
		"id", "external_id", "source", "url", "title", "summary", "full_text", "artifact_path",
		"extracted_at", "publication_date", "official_date", "legal_area", "document_type", "status", "owner_id",
	}).AddRow(
		"doc-1", "T-123/25", "corte", "https://example.test/t-123", "Sentencia T-123",
		"resumen", "texto completo", "gs://bucket/T-123-25.rtf",
		extractedAt, &official, &official, "constitucional", "sentencia",
		extraction.DocumentStatusPending, "owner-1",
	)

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("T-123/25", "https://example.test/t-123").
		WillReturnRows(rows)

	doc, err := store.FindDuplicate(context.Background(), "T-123/25", "https://example.test/t-123")
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Equal(t, "doc-1", doc.ID)
	require.Equal(t, extraction.DocumentStatusPending, doc.Status)
	require.NotNil(t, doc.OfficialDate)
	require.True(t, official.Equal(*doc.OfficialDate))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindDuplicateNoMatch(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewDocumentStore(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs("missing", "https://example.test/none").
		WillReturnError(pgx.ErrNoRows)

	doc, err := store.FindDuplicate(context.Background(), "missing", "https://example.test/none")
	require.NoError(t, err)
	require.Nil(t, doc)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewDocumentStore(mock)
	require.NoError(t, err)

	extractedAt := time.Unix(1700000000, 0).UTC()
	input := extraction.DocumentInput{
		ExternalID:  "T-123/25",
		Source:      "corte",
		URL:         "https://example.test/t-123",
		Title:       "Sentencia T-123",
		Summary:     "resumen",
		ExtractedAt: extractedAt,
		OwnerID:     "owner-1",
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			pgxmock.AnyArg(),
			input.ExternalID,
			input.Source,
			input.URL,
			input.Title,
			input.Summary,
			input.FullText,
			input.ArtifactPath,
			input.ExtractedAt,
			input.PublicationDate,
			input.OfficialDate,
			input.LegalArea,
			input.DocumentType,
			extraction.DocumentStatusPending,
			input.OwnerID,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	doc, err := store.Save(context.Background(), input)
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)
	require.Equal(t, extraction.DocumentStatusPending, doc.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewDocumentStoreRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewDocumentStore(nil)
	require.Error(t, err)
}
