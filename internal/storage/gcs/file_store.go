// Package gcs implements a Google Cloud Storage artifact store.
package gcs

import (
	"context"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// Config captures the parameters for the GCS file store.
type Config struct {
	// Bucket is the GCS bucket artifacts are written to.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	// Prefix is an optional object-name prefix (e.g. "artifacts").
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// FileStore writes artifacts to a GCS bucket.
type FileStore struct {
	client *storage.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// New initializes a GCS client and verifies bucket access. Authentication is
// handled via Application Default Credentials.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*FileStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	// Fail fast on startup when the bucket is missing or inaccessible.
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close GCS client after bucket check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("failed to get GCS bucket %q attributes: %w", cfg.Bucket, err)
	}

	return &FileStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// Save uploads the artifact and returns its gs:// URI.
func (s *FileStore) Save(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}
	objectName := filename
	if s.prefix != "" {
		objectName = path.Join(s.prefix, filename)
	}

	wc := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		wc.ContentType = contentType
	}
	if _, err := wc.Write(data); err != nil {
		if closeErr := wc.Close(); closeErr != nil {
			s.logger.Warn("failed to close GCS writer after write failure", zap.Error(closeErr))
		}
		return "", fmt.Errorf("failed to write GCS object %s: %w", objectName, err)
	}
	// Close finalizes the upload and flushes buffered data.
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer for object %s: %w", objectName, err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

// Close releases the underlying client.
func (s *FileStore) Close() error {
	return s.client.Close()
}
