// Package payment implements bank-transfer reconciliation: unique-code
// billing, proof intake and finance verification.
//
// Transfers are matched by hand against exact amounts, so the unique code is
// the only thing separating two submitters billed the same base price. Code
// issuance is therefore a correctness concern, not cosmetics: no two
// unresolved records may share a (base amount, code) pair.
package payment

import (
	"time"

	id "charter/pkg/domain"
	dErrors "charter/pkg/domain-errors"
)

// Unique codes are drawn from this inclusive range and added to the base
// amount.
const (
	CodeMin = 100
	CodeMax = 999
)

// Status is the payment record's position in the reconciliation flow.
type Status string

const (
	StatusAwaitingTransfer     Status = "awaiting_transfer"
	StatusAwaitingVerification Status = "awaiting_verification"
	StatusVerified             Status = "verified"
	StatusRejected             Status = "rejected"
)

// Unresolved reports whether the record still occupies its (base, code)
// slot. Verified and rejected records free the code for reuse.
func (s Status) Unresolved() bool {
	return s == StatusAwaitingTransfer || s == StatusAwaitingVerification
}

// PaymentRecord is the bill issued for one approved claim.
type PaymentRecord struct {
	ID          id.PaymentID
	ClaimID     id.ClaimID
	SubmitterID id.AccountID

	BaseAmount  int64
	UniqueCode  int
	TotalAmount int64

	ProofKey        string
	Status          Status
	RejectionReason string
	VerifierID      id.AccountID
	VerifiedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPaymentRecord constructs a bill awaiting transfer. The total is derived
// here and nowhere else, so total == base + code holds by construction.
func NewPaymentRecord(paymentID id.PaymentID, claimID id.ClaimID, submitterID id.AccountID, baseAmount int64, code int, now time.Time) (*PaymentRecord, error) {
	if baseAmount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "base amount must be positive")
	}
	if code < CodeMin || code > CodeMax {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unique code %d out of range", code)
	}
	return &PaymentRecord{
		ID:          paymentID,
		ClaimID:     claimID,
		SubmitterID: submitterID,
		BaseAmount:  baseAmount,
		UniqueCode:  code,
		TotalAmount: baseAmount + int64(code),
		Status:      StatusAwaitingTransfer,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ApplyProof stores the proof reference and moves the record to
// awaiting_verification. Valid from awaiting_transfer and from rejected
// (resubmission).
func (p *PaymentRecord) ApplyProof(proofKey string, now time.Time) {
	p.ProofKey = proofKey
	p.Status = StatusAwaitingVerification
	p.RejectionReason = ""
	p.UpdatedAt = now
}

// ApplyVerification marks the record verified.
func (p *PaymentRecord) ApplyVerification(verifierID id.AccountID, now time.Time) {
	p.Status = StatusVerified
	p.VerifierID = verifierID
	at := now
	p.VerifiedAt = &at
	p.UpdatedAt = now
}

// ApplyRejection records the reviewer's reason. The proof key is retained so
// the submitter can resubmit against it.
func (p *PaymentRecord) ApplyRejection(verifierID id.AccountID, reason string, now time.Time) {
	p.Status = StatusRejected
	p.RejectionReason = reason
	p.VerifierID = verifierID
	p.UpdatedAt = now
}
