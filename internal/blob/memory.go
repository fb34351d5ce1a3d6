package blob

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"charter/pkg/platform/sentinel"
)

// InMemoryStore keeps blobs in process for tests and local development.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string][]byte)}
}

func (s *InMemoryStore) Put(_ context.Context, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := uuid.NewString()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[key] = cp
	return key, nil
}

func (s *InMemoryStore) URL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.blobs[key]; !ok {
		return "", sentinel.ErrNotFound
	}
	return "memory://" + key, nil
}

// Get returns the stored bytes; test helper.
func (s *InMemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	return data, ok
}
