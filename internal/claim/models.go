// Package claim implements the onboarding claim lifecycle: the submission a
// regional institution files to join the network, and the two-tier approval
// chain that gates it.
package claim

import (
	"time"

	id "charter/pkg/domain"
	dErrors "charter/pkg/domain-errors"
)

// Kind distinguishes a brand-new registration from a claim over an
// institution that predates the network.
type Kind string

const (
	KindNewRegistration Kind = "new_registration"
	KindLegacyClaim     Kind = "legacy_claim"
)

// ParseKind validates and returns a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindNewRegistration, KindLegacyClaim:
		return Kind(s), true
	}
	return "", false
}

// Status is the claim's position in the approval chain. It only moves
// forward along pending -> regional_approved -> centrally_approved ->
// approved; rejected is reachable from the two review stages and terminal.
type Status string

const (
	StatusPending           Status = "pending"
	StatusRegionalApproved  Status = "regional_approved"
	StatusCentrallyApproved Status = "centrally_approved"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Claim is one institution's onboarding request. Rejected claims are never
// reopened; resubmission is a fresh Claim from the same submitter.
type Claim struct {
	ID              id.ClaimID
	SubmitterID     id.AccountID
	InstitutionName string
	RegionID        id.RegionID
	Kind            Kind
	Status          Status
	RejectionReason string

	RegionalReviewerID id.AccountID
	RegionalReviewedAt *time.Time
	CentralReviewerID  id.AccountID
	CentralReviewedAt  *time.Time
	RejectedBy         id.AccountID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewClaim constructs a pending claim, enforcing submission invariants.
func NewClaim(claimID id.ClaimID, submitterID id.AccountID, institutionName string, regionID id.RegionID, kind Kind, now time.Time) (*Claim, error) {
	if institutionName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "institution name is required")
	}
	if regionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "region is required")
	}
	if kind != KindNewRegistration && kind != KindLegacyClaim {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown claim kind")
	}
	return &Claim{
		ID:              claimID,
		SubmitterID:     submitterID,
		InstitutionName: institutionName,
		RegionID:        regionID,
		Kind:            kind,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ApplyRegionalApproval advances pending -> regional_approved.
func (c *Claim) ApplyRegionalApproval(reviewerID id.AccountID, now time.Time) {
	c.Status = StatusRegionalApproved
	c.RegionalReviewerID = reviewerID
	at := now
	c.RegionalReviewedAt = &at
	c.UpdatedAt = now
}

// ApplyCentralApproval advances regional_approved -> centrally_approved.
func (c *Claim) ApplyCentralApproval(reviewerID id.AccountID, now time.Time) {
	c.Status = StatusCentrallyApproved
	c.CentralReviewerID = reviewerID
	at := now
	c.CentralReviewedAt = &at
	c.UpdatedAt = now
}

// ApplyFinalApproval advances centrally_approved -> approved. Only the
// activation cascade calls this.
func (c *Claim) ApplyFinalApproval(now time.Time) {
	c.Status = StatusApproved
	c.UpdatedAt = now
}

// ApplyRejection terminates the claim with a reason.
func (c *Claim) ApplyRejection(reviewerID id.AccountID, reason string, now time.Time) {
	c.Status = StatusRejected
	c.RejectionReason = reason
	c.RejectedBy = reviewerID
	c.UpdatedAt = now
}
