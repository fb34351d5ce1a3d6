package payment

import (
	"context"

	id "charter/pkg/domain"
)

// Store persists payment records.
//
// Create enforces the two issuance constraints and distinguishes them by
// sentinel: ErrConflict when the claim already has a record, ErrAlreadyUsed
// when another unresolved record holds the same (base amount, unique code)
// pair. The second one makes the issuer redraw.
type Store interface {
	Create(ctx context.Context, p *PaymentRecord) error
	FindByID(ctx context.Context, paymentID id.PaymentID) (*PaymentRecord, error)
	FindByClaim(ctx context.Context, claimID id.ClaimID) (*PaymentRecord, error)
	// Execute is the compare-and-set primitive; see claim.Store.
	Execute(ctx context.Context, paymentID id.PaymentID, validate func(*PaymentRecord) error, mutate func(*PaymentRecord)) (*PaymentRecord, error)
}
