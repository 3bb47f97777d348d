package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/lexharvest/docstream/internal/extraction"
)

func sampleRecord() extraction.HistoryRecord {
	started := time.Unix(1700000000, 0).UTC()
	return extraction.HistoryRecord{
		ID:             "boe-1700000000000-abc12345",
		SourceID:       "boe",
		OwnerID:        "owner-1",
		Status:         "pending",
		ParametersJSON: `{"limit":10}`,
		StartedAt:      &started,
	}
}

func TestCreateRecordInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewHistoryStore(mock)
	require.NoError(t, err)

	record := sampleRecord()
	mock.ExpectExec("INSERT INTO extraction_history").
		WithArgs(
			record.ID,
			record.SourceID,
			record.OwnerID,
			record.Status,
			record.ParametersJSON,
			record.DocumentsFound,
			record.DocumentsProcessed,
			record.ExecutionSeconds,
			record.StartedAt,
			record.CompletedAt,
			record.ErrorText,
			record.ResultPreviewJSON,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateRecord(context.Background(), record))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRecordMissingRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewHistoryStore(mock)
	require.NoError(t, err)

	record := sampleRecord()
	record.Status = "completed"
	mock.ExpectExec("UPDATE extraction_history").
		WithArgs(
			record.ID,
			record.Status,
			record.DocumentsFound,
			record.DocumentsProcessed,
			record.ExecutionSeconds,
			record.StartedAt,
			record.CompletedAt,
			record.ErrorText,
			record.ResultPreviewJSON,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.UpdateRecord(context.Background(), record)
	require.ErrorIs(t, err, extraction.ErrJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecordRoundTrip(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewHistoryStore(mock)
	require.NoError(t, err)

	record := sampleRecord()
	rows := pgxmock.NewRows([]string{
		"id", "source_id", "owner_id", "status", "parameters", "documents_found",
		"documents_processed", "execution_seconds", "started_at", "completed_at",
		"error_text", "result_preview",
	}).AddRow(
		record.ID, record.SourceID, record.OwnerID, record.Status, record.ParametersJSON,
		record.DocumentsFound, record.DocumentsProcessed, record.ExecutionSeconds,
		record.StartedAt, record.CompletedAt, record.ErrorText, record.ResultPreviewJSON,
	)

	mock.ExpectQuery("SELECT (.+) FROM extraction_history").
		WithArgs(record.ID).
		WillReturnRows(rows)

	got, err := store.GetRecord(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, record.SourceID, got.SourceID)
	require.Equal(t, record.ParametersJSON, got.ParametersJSON)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecordNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewHistoryStore(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM extraction_history").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source_id", "owner_id", "status", "parameters", "documents_found",
			"documents_processed", "execution_seconds", "started_at", "completed_at",
			"error_text", "result_preview",
		}))

	_, err = store.GetRecord(context.Background(), "missing")
	require.ErrorIs(t, err, extraction.ErrJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
