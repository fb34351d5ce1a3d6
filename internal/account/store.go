package account

import (
	"context"
	"time"

	id "charter/pkg/domain"
)

// Store persists accounts. Role and activation writes happen inside the
// enclosing transaction when the context carries one; implementations must
// honor that so the activation cascade and admin reassignment stay atomic.
type Store interface {
	Create(ctx context.Context, acct *Account) error
	FindByID(ctx context.Context, accountID id.AccountID) (*Account, error)
	// FindRegionalAdmin returns the current regional_admin of a region, or
	// sentinel.ErrNotFound when the seat is empty.
	FindRegionalAdmin(ctx context.Context, regionID id.RegionID) (*Account, error)
	// SetRole overwrites the account's role and region scope.
	SetRole(ctx context.Context, accountID id.AccountID, role id.Role, regionID id.RegionID, now time.Time) error
	// Activate sets account_status=active and payment_status=paid in one
	// write. These two fields never move independently.
	Activate(ctx context.Context, accountID id.AccountID, now time.Time) error
}
