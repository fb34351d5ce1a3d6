package audit

import "time"

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/financial significance:
	// approvals, payment verification, activation. Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers authority changes: role grants and
	// revocations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Action    Action
	// ActorID is the account that performed the action.
	ActorID string
	// Subject is the entity acted upon (claim id, payment id, account id).
	Subject string
	// RegionID scopes the event when the subject is region-bound.
	RegionID string
	Decision string
	Reason   string
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string
	// Device is a short user-agent summary of the actor's client.
	Device string
}

// Action names an auditable domain action.
type Action string

const (
	ActionClaimSubmitted         Action = "claim_submitted"
	ActionClaimRegionalApproved  Action = "claim_regional_approved"
	ActionClaimCentrallyApproved Action = "claim_centrally_approved"
	ActionClaimRejected          Action = "claim_rejected"

	ActionBillIssued      Action = "bill_issued"
	ActionProofSubmitted  Action = "proof_submitted"
	ActionPaymentVerified Action = "payment_verified"
	ActionPaymentRejected Action = "payment_rejected"

	ActionAccountActivated Action = "account_activated"

	ActionRegionalAdminAssigned Action = "regional_admin_assigned"
	ActionAdminRevoked          Action = "admin_revoked"
	ActionCentralRoleAssigned   Action = "central_role_assigned"
)

var eventCategories = map[Action]EventCategory{
	ActionClaimRegionalApproved:  CategoryCompliance,
	ActionClaimCentrallyApproved: CategoryCompliance,
	ActionClaimRejected:          CategoryCompliance,
	ActionBillIssued:             CategoryCompliance,
	ActionPaymentVerified:        CategoryCompliance,
	ActionPaymentRejected:        CategoryCompliance,
	ActionAccountActivated:       CategoryCompliance,

	ActionRegionalAdminAssigned: CategorySecurity,
	ActionAdminRevoked:          CategorySecurity,
	ActionCentralRoleAssigned:   CategorySecurity,

	ActionClaimSubmitted: CategoryOperations,
	ActionProofSubmitted: CategoryOperations,
}

// Category returns the event category for an action, defaulting to
// operations for unmapped actions.
func (a Action) Category() EventCategory {
	if c, ok := eventCategories[a]; ok {
		return c
	}
	return CategoryOperations
}
