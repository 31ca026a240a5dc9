package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps objects in process memory. It backs development and
// tests, and deployments that can tolerate re-fetching labels on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Upload(_ context.Context, path string, body []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(body))
	copy(buf, body)
	s.objects[path] = buf
	return nil
}

func (s *MemoryStore) Download(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, ok := s.objects[path]
	if !ok {
		return nil, ErrNotFound
	}
	return body, nil
}
