package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps audit entries in process. Used in tests and when no
// database is configured.
type InMemoryStore struct {
	mu      sync.Mutex
	seq     int64
	entries []Entry
	pending map[int64]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{pending: make(map[int64]bool)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.entries = append(s.entries, Entry{Seq: s.seq, Event: event})
	s.pending[s.seq] = true
	return nil
}

func (s *InMemoryStore) NextBatch(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var batch []Entry
	for _, e := range s.entries {
		if !s.pending[e.Seq] {
			continue
		}
		batch = append(batch, e)
		if len(batch) == limit {
			break
		}
	}
	return batch, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.pending, id)
	}
	return nil
}

// Events returns all appended events; test helper.
func (s *InMemoryStore) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Event)
	}
	return out
}
