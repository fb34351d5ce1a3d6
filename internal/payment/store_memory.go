package payment

import (
	"context"
	"sync"

	id "charter/pkg/domain"
	"charter/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	payments map[id.PaymentID]*PaymentRecord
	byClaim  map[id.ClaimID]id.PaymentID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		payments: make(map[id.PaymentID]*PaymentRecord),
		byClaim:  make(map[id.ClaimID]id.PaymentID),
	}
}

// Create enforces one record per claim and unresolved (base, code)
// uniqueness under a single lock, mirroring the postgres constraints.
func (s *InMemoryStore) Create(_ context.Context, p *PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byClaim[p.ClaimID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.payments {
		if existing.Status.Unresolved() && existing.BaseAmount == p.BaseAmount && existing.UniqueCode == p.UniqueCode {
			return sentinel.ErrAlreadyUsed
		}
	}
	cp := *p
	s.payments[p.ID] = &cp
	s.byClaim[p.ClaimID] = p.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, paymentID id.PaymentID) (*PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) FindByClaim(_ context.Context, claimID id.ClaimID) (*PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paymentID, ok := s.byClaim[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.payments[paymentID]
	return &cp, nil
}

func (s *InMemoryStore) Execute(_ context.Context, paymentID id.PaymentID, validate func(*PaymentRecord) error, mutate func(*PaymentRecord)) (*PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)
	cp := *p
	return &cp, nil
}
