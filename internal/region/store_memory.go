package region

import (
	"context"
	"sort"
	"sync"

	id "charter/pkg/domain"
	"charter/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	regions map[id.RegionID]*Region
}

func NewInMemoryStore(regions ...*Region) *InMemoryStore {
	s := &InMemoryStore{regions: make(map[id.RegionID]*Region)}
	for _, r := range regions {
		s.regions[r.ID] = r
	}
	return s
}

// Add registers a region; test and seed helper.
func (s *InMemoryStore) Add(r *Region) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions[r.ID] = r
}

func (s *InMemoryStore) FindByID(_ context.Context, regionID id.RegionID) (*Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regions[regionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *r
	return &found, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Region, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Region, 0, len(s.regions))
	for _, r := range s.regions {
		rc := *r
		out = append(out, &rc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
