// Package memory provides in-memory persistence for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lexharvest/docstream/internal/extraction"
)

// DocumentStore keeps normalized documents in process memory.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]extraction.NormalizedDocument
}

// NewDocumentStore creates an empty in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]extraction.NormalizedDocument)}
}

// FindDuplicate returns the stored record matching either identity field.
func (s *DocumentStore) FindDuplicate(_ context.Context, externalID, url string) (*extraction.NormalizedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if (externalID != "" && doc.ExternalID == externalID) || (url != "" && doc.URL == url) {
			d := doc
			return &d, nil
		}
	}
	return nil, nil
}

// Save stores the document and assigns it a fresh ID.
func (s *DocumentStore) Save(_ context.Context, input extraction.DocumentInput) (extraction.NormalizedDocument, error) {
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
	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.mu.Unlock()
	return doc, nil
}

// Len reports the number of stored documents.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
