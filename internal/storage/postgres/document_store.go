// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexharvest/docstream/internal/extraction"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// NewPool builds a pgx pool from Config for the stores in this package.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// DocumentStore persists normalized documents in Postgres.
type DocumentStore struct {
	pool dbPool
}

// NewDocumentStore constructs a store from an existing pool.
func NewDocumentStore(pool dbPool) (*DocumentStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &DocumentStore{pool: pool}, nil
}

const documentColumns = `id, external_id, source, url, title, summary, full_text, artifact_path,
	extracted_at, publication_date, official_date, legal_area, document_type, status, owner_id`

// FindDuplicate returns the stored document matching either identity field,
// or nil when no record matches.
func (s *DocumentStore) FindDuplicate(ctx context.Context, externalID, url string) (*extraction.NormalizedDocument, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE external_id = $1 OR url = $2
		LIMIT 1;`

	var doc extraction.NormalizedDocument
	err := s.pool.QueryRow(ctx, query, externalID, url).Scan(
		&doc.ID,
		&doc.ExternalID,
		&doc.Source,
		&doc.URL,
		&doc.Title,
		&doc.Summary,
		&doc.FullText,
		&doc.ArtifactPath,
		&doc.ExtractedAt,
		&doc.PublicationDate,
		&doc.OfficialDate,
		&doc.LegalArea,
		&doc.DocumentType,
		&doc.Status,
		&doc.OwnerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query duplicate: %w", err)
	}
	return &doc, nil
}

// Save inserts the document and returns the stored form.
func (s *DocumentStore) Save(ctx context.Context, input extraction.DocumentInput) (extraction.NormalizedDocument, error) {
	doc := extraction.NormalizedDocument{
		ID:              uuid.NewString(),
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

	query := `INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);`

	_, err := s.pool.Exec(ctx, query,
		doc.ID,
		doc.ExternalID,
		doc.Source,
		doc.URL,
		doc.Title,
		doc.Summary,
		doc.FullText,
		doc.ArtifactPath,
		doc.ExtractedAt,
		doc.PublicationDate,
		doc.OfficialDate,
		doc.LegalArea,
		doc.DocumentType,
		doc.Status,
		doc.OwnerID,
	)
	if err != nil {
		return extraction.NormalizedDocument{}, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

// Close releases the underlying pool.
func (s *DocumentStore) Close() {
	s.pool.Close()
}
