package memory

import (
	"context"
	"sync"

	"github.com/lexharvest/docstream/internal/extraction"
)

// HistoryStore keeps job history records in process memory.
type HistoryStore struct {
	mu      sync.RWMutex
	records map[string]extraction.HistoryRecord
}

// NewHistoryStore creates an empty in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{records: make(map[string]extraction.HistoryRecord)}
}

// CreateRecord stores a new history record.
func (s *HistoryStore) CreateRecord(_ context.Context, record extraction.HistoryRecord) error {
	s.mu.Lock()
	s.records[record.ID] = record
	s.mu.Unlock()
	return nil
}

// UpdateRecord replaces the stored record for the same job.
func (s *HistoryStore) UpdateRecord(_ context.Context, record extraction.HistoryRecord) error {
	s.mu.Lock()
	s.records[record.ID] = record
	s.mu.Unlock()
	return nil
}

// GetRecord returns the record for jobID or extraction.ErrJobNotFound.
func (s *HistoryStore) GetRecord(_ context.Context, jobID string) (extraction.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[jobID]
	if !ok {
		return extraction.HistoryRecord{}, extraction.ErrJobNotFound
	}
	return record, nil
}
