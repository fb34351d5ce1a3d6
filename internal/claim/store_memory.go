package claim

import (
	"context"
	"sort"
	"sync"

	id "charter/pkg/domain"
	"charter/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	claims map[id.ClaimID]*Claim
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{claims: make(map[id.ClaimID]*Claim)}
}

func (s *InMemoryStore) Create(_ context.Context, c *Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[c.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	cp := *c
	s.claims[c.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, claimID id.ClaimID) (*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryStore) ListBySubmitter(_ context.Context, submitterID id.AccountID) ([]*Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Claim
	for _, c := range s.claims {
		if c.SubmitterID == submitterID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Execute holds the write lock across validate and mutate so a status
// precondition checked in validate cannot be invalidated by a concurrent
// caller before mutate applies.
func (s *InMemoryStore) Execute(_ context.Context, claimID id.ClaimID, validate func(*Claim) error, mutate func(*Claim)) (*Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)
	cp := *c
	return &cp, nil
}
