package memory

import (
	"context"
	"fmt"
	"sync"
)

// FileStore keeps artifact bytes in process memory and returns pseudo URIs.
type FileStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewFileStore creates an empty in-memory file store.
func NewFileStore() *FileStore {
	return &FileStore{data: make(map[string][]byte)}
}

// Save stores the artifact and returns a memory:// URI.
func (s *FileStore) Save(_ context.Context, filename string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	s.data[filename] = append([]byte(nil), data...)
	s.mu.Unlock()
	return fmt.Sprintf("memory://%s", filename), nil
}

// Get returns the stored bytes for filename.
func (s *FileStore) Get(filename string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[filename]
	return data, ok
}
