package claim

import (
	"context"

	id "charter/pkg/domain"
)

// Store persists claims. Execute is the compare-and-set primitive every
// state-advancing operation goes through: the store holds its lock (mutex or
// SELECT ... FOR UPDATE) across validate and mutate, so a precondition
// checked in validate still holds when mutate runs.
type Store interface {
	Create(ctx context.Context, c *Claim) error
	FindByID(ctx context.Context, claimID id.ClaimID) (*Claim, error)
	ListBySubmitter(ctx context.Context, submitterID id.AccountID) ([]*Claim, error)
	// Execute loads the claim, runs validate, and applies mutate only when
	// validate returned nil. Returns the updated claim.
	Execute(ctx context.Context, claimID id.ClaimID, validate func(*Claim) error, mutate func(*Claim)) (*Claim, error)
}
