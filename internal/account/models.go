// Package account holds the institutional profile backing every submitter
// and reviewer. Activation state only moves through the payment cascade;
// roles only move through the authority registry.
package account

import (
	"time"

	id "charter/pkg/domain"
	dErrors "charter/pkg/domain-errors"
)

// AccountStatus is the lifecycle state of the institutional account.
type AccountStatus string

const (
	AccountStatusPending  AccountStatus = "pending"
	AccountStatusActive   AccountStatus = "active"
	AccountStatusRejected AccountStatus = "rejected"
)

// PaymentStatus tracks whether the onboarding bill has been settled.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// ProfileLevel is the membership tier of the institution.
type ProfileLevel string

const (
	ProfileLevelBasic    ProfileLevel = "basic"
	ProfileLevelSilver   ProfileLevel = "silver"
	ProfileLevelGold     ProfileLevel = "gold"
	ProfileLevelPlatinum ProfileLevel = "platinum"
)

// Account is the submitter's institutional profile.
type Account struct {
	ID            id.AccountID
	Name          string
	Email         string
	Role          id.Role
	RegionID      id.RegionID
	AccountStatus AccountStatus
	PaymentStatus PaymentStatus
	ProfileLevel  ProfileLevel
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAccount constructs a pending member account.
func NewAccount(accountID id.AccountID, name, email string, regionID id.RegionID, now time.Time) (*Account, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "account name is required")
	}
	return &Account{
		ID:            accountID,
		Name:          name,
		Email:         email,
		Role:          id.RoleMember,
		RegionID:      regionID,
		AccountStatus: AccountStatusPending,
		PaymentStatus: PaymentStatusUnpaid,
		ProfileLevel:  ProfileLevelBasic,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Activated reports whether the account already completed the activation
// cascade. account_status=active and payment_status=paid always move
// together.
func (a *Account) Activated() bool {
	return a.AccountStatus == AccountStatusActive && a.PaymentStatus == PaymentStatusPaid
}

// ApplyActivation marks the account active and paid as one unit.
func (a *Account) ApplyActivation(now time.Time) {
	a.AccountStatus = AccountStatusActive
	a.PaymentStatus = PaymentStatusPaid
	a.UpdatedAt = now
}
