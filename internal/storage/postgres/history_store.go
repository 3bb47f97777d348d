package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lexharvest/docstream/internal/extraction"
)

// HistoryStore persists job history records in Postgres.
type HistoryStore struct {
	pool dbPool
}

// NewHistoryStore constructs a store from an existing pool.
func NewHistoryStore(pool dbPool) (*HistoryStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &HistoryStore{pool: pool}, nil
}

// CreateRecord inserts a new history row for the job.
func (s *HistoryStore) CreateRecord(ctx context.Context, record extraction.HistoryRecord) error {
	query := `INSERT INTO extraction_history
		(id, source_id, owner_id, status, parameters, documents_found, documents_processed,
		 execution_seconds, started_at, completed_at, error_text, result_preview)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);`

	_, err := s.pool.Exec(ctx, query,
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
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// UpdateRecord replaces the mutable fields of the job's history row.
func (s *HistoryStore) UpdateRecord(ctx context.Context, record extraction.HistoryRecord) error {
	query := `UPDATE extraction_history
		SET status = $2, documents_found = $3, documents_processed = $4,
		    execution_seconds = $5, started_at = $6, completed_at = $7,
		    error_text = $8, result_preview = $9
		WHERE id = $1;`

	tag, err := s.pool.Exec(ctx, query,
		record.ID,
		record.Status,
		record.DocumentsFound,
		record.DocumentsProcessed,
		record.ExecutionSeconds,
		record.StartedAt,
		record.CompletedAt,
		record.ErrorText,
		record.ResultPreviewJSON,
	)
	if err != nil {
		return fmt.Errorf("update history record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return extraction.ErrJobNotFound
	}
	return nil
}

// GetRecord returns the history row for jobID or extraction.ErrJobNotFound.
func (s *HistoryStore) GetRecord(ctx context.Context, jobID string) (extraction.HistoryRecord, error) {
	query := `SELECT id, source_id, owner_id, status, parameters, documents_found,
		documents_processed, execution_seconds, started_at, completed_at, error_text, result_preview
		FROM extraction_history
		WHERE id = $1;`

	var record extraction.HistoryRecord
	err := s.pool.QueryRow(ctx, query, jobID).Scan(
		&record.ID,
		&record.SourceID,
		&record.OwnerID,
		&record.Status,
		&record.ParametersJSON,
		&record.DocumentsFound,
		&record.DocumentsProcessed,
		&record.ExecutionSeconds,
		&record.StartedAt,
		&record.CompletedAt,
		&record.ErrorText,
		&record.ResultPreviewJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return extraction.HistoryRecord{}, extraction.ErrJobNotFound
		}
		return extraction.HistoryRecord{}, fmt.Errorf("query history record: %w", err)
	}
	return record, nil
}
