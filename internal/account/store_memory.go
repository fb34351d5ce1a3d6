package account

import (
	"context"
	"sync"
	"time"

	id "charter/pkg/domain"
	"charter/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]*Account
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{accounts: make(map[id.AccountID]*Account)}
}

func (s *InMemoryStore) Create(_ context.Context, acct *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acct.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	cp := *acct
	s.accounts[acct.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, accountID id.AccountID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

func (s *InMemoryStore) FindRegionalAdmin(_ context.Context, regionID id.RegionID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acct := range s.accounts {
		if acct.Role == id.RoleRegionalAdmin && acct.RegionID == regionID {
			cp := *acct
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) SetRole(_ context.Context, accountID id.AccountID, role id.Role, regionID id.RegionID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if role == id.RoleRegionalAdmin {
		for otherID, other := range s.accounts {
			if otherID != accountID && other.Role == id.RoleRegionalAdmin && other.RegionID == regionID {
				return sentinel.ErrConflict
			}
		}
	}
	acct.Role = role
	acct.RegionID = regionID
	acct.UpdatedAt = now
	return nil
}

func (s *InMemoryStore) Activate(_ context.Context, accountID id.AccountID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return sentinel.ErrNotFound
	}
	acct.ApplyActivation(now)
	return nil
}
