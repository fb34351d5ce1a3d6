// Package domain holds typed identifiers shared across modules. Wrapping
// uuid.UUID in distinct types keeps an account id from being passed where a
// claim id is expected.
package domain

import "github.com/google/uuid"

// AccountID identifies an institutional account.
type AccountID uuid.UUID

// ClaimID identifies an onboarding claim.
type ClaimID uuid.UUID

// PaymentID identifies a payment record.
type PaymentID uuid.UUID

// RegionID identifies a region.
type RegionID uuid.UUID

func (id AccountID) String() string { return uuid.UUID(id).String() }
func (id ClaimID) String() string   { return uuid.UUID(id).String() }
func (id PaymentID) String() string { return uuid.UUID(id).String() }
func (id RegionID) String() string  { return uuid.UUID(id).String() }

func (id AccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ClaimID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id PaymentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RegionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// NewAccountID returns a fresh random account id.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// NewClaimID returns a fresh random claim id.
func NewClaimID() ClaimID { return ClaimID(uuid.New()) }

// NewPaymentID returns a fresh random payment id.
func NewPaymentID() PaymentID { return PaymentID(uuid.New()) }

// NewRegionID returns a fresh random region id.
func NewRegionID() RegionID { return RegionID(uuid.New()) }

// ParseAccountID parses the textual form of an account id.
func ParseAccountID(s string) (AccountID, error) {
	u, err := uuid.Parse(s)
	return AccountID(u), err
}

// ParseClaimID parses the textual form of a claim id.
func ParseClaimID(s string) (ClaimID, error) {
	u, err := uuid.Parse(s)
	return ClaimID(u), err
}

// ParsePaymentID parses the textual form of a payment id.
func ParsePaymentID(s string) (PaymentID, error) {
	u, err := uuid.Parse(s)
	return PaymentID(u), err
}

// ParseRegionID parses the textual form of a region id.
func ParseRegionID(s string) (RegionID, error) {
	u, err := uuid.Parse(s)
	return RegionID(u), err
}
