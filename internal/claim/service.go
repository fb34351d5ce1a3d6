package claim

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"charter/internal/audit"
	"charter/internal/region"
	id "charter/pkg/domain"
	dErrors "charter/pkg/domain-errors"
	"charter/pkg/platform/sentinel"
	"charter/pkg/requestcontext"
)

// AuditPublisher records domain actions for the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the claim lifecycle. Every state-advancing operation
// is a compare-and-set through Store.Execute, so two reviewers racing on the
// same claim resolve to exactly one winner.
type Service struct {
	claims  Store
	regions region.Store

	logger  *slog.Logger
	auditor AuditPublisher
	metrics *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs a claim Service.
func NewService(claims Store, regions region.Store, opts ...Option) *Service {
	s := &Service{claims: claims, regions: regions, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit files a new onboarding claim for the authenticated actor.
func (s *Service) Submit(ctx context.Context, institutionName string, regionID id.RegionID, kind Kind) (*Claim, error) {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	institutionName = strings.TrimSpace(institutionName)
	if institutionName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "institution name is required")
	}
	if _, err := s.regions.FindByID(ctx, regionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown region")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to resolve region")
	}

	now := requestcontext.Now(ctx)
	c, err := NewClaim(id.NewClaimID(), actor.AccountID, institutionName, regionID, kind, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.claims.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store claim")
	}

	s.emit(ctx, audit.Event{
		Action:   audit.ActionClaimSubmitted,
		ActorID:  actor.AccountID.String(),
		Subject:  c.ID.String(),
		RegionID: c.RegionID.String(),
	})
	s.metrics.recordSubmitted(c.Kind)
	return c, nil
}

// ApproveRegional advances a pending claim to regional_approved. The
// reviewer's authority region must match the claim's region.
func (s *Service) ApproveRegional(ctx context.Context, claimID id.ClaimID) (*Claim, error) {
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	c, err := s.claims.Execute(ctx, claimID,
		func(c *Claim) error {
			if actor.Role != id.RoleRegionalAdmin || actor.RegionID != c.RegionID {
				return dErrors.New(dErrors.CodeForbidden, "regional approval requires the region's reviewer")
			}
			if c.Status != StatusPending {
				return sentinel.ErrConflict
			}
			return nil
		},
		func(c *Claim) {
			c.ApplyRegionalApproval(actor.AccountID, now)
		},
	)
	if err != nil {
		return nil, s.wrapTransitionErr(err, "regional approval")
	}

	s.emit(ctx, audit.Event{
		Action:   audit.ActionClaimRegionalApproved,
		ActorID:  actor.AccountID.String(),
		Subject:  c.ID.String(),
		RegionID: c.RegionID.String(),
		Decision: "approved",
	})
	s.metrics.recordApproved("regional")
	return c, nil
}

// ApproveCentral advances a regional_approved claim to centrally_approved.
func (s *Service) ApproveCentral(ctx context.Context, claimID id.ClaimID) (*Claim, error) {
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	c, err := s.claims.Execute(ctx, claimID,
		func(c *Claim) error {
			if actor.Role != id.RoleCentralAdmin {
				return dErrors.New(dErrors.CodeForbidden, "central approval requires a central reviewer")
			}
			if c.Status != StatusRegionalApproved {
				return sentinel.ErrConflict
			}
			return nil
		},
		func(c *Claim) {
			c.ApplyCentralApproval(actor.AccountID, now)
		},
	)
	if err != nil {
		return nil, s.wrapTransitionErr(err, "central approval")
	}

	s.emit(ctx, audit.Event{
		Action:   audit.ActionClaimCentrallyApproved,
		ActorID:  actor.AccountID.String(),
		Subject:  c.ID.String(),
		RegionID: c.RegionID.String(),
		Decision: "approved",
	})
	s.metrics.recordApproved("central")
	return c, nil
}

// Reject terminates a claim with a reason. Regional reviewers may reject
// pending claims in their region; central reviewers may reject pending and
// regionally approved claims.
func (s *Service) Reject(ctx context.Context, claimID id.ClaimID, reason string) (*Claim, error) {
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}

	c, err := s.claims.Execute(ctx, claimID,
		func(c *Claim) error {
			switch actor.Role {
			case id.RoleRegionalAdmin:
				if actor.RegionID != c.RegionID {
					return dErrors.New(dErrors.CodeForbidden, "claim belongs to another region")
				}
				if c.Status != StatusPending {
					return sentinel.ErrConflict
				}
			case id.RoleCentralAdmin:
				if c.Status != StatusPending && c.Status != StatusRegionalApproved {
					return sentinel.ErrConflict
				}
			default:
				return dErrors.New(dErrors.CodeForbidden, "rejection requires a reviewer role")
			}
			return nil
		},
		func(c *Claim) {
			c.ApplyRejection(actor.AccountID, reason, now)
		},
	)
	if err != nil {
		return nil, s.wrapTransitionErr(err, "rejection")
	}

	s.emit(ctx, audit.Event{
		Action:   audit.ActionClaimRejected,
		ActorID:  actor.AccountID.String(),
		Subject:  c.ID.String(),
		RegionID: c.RegionID.String(),
		Decision: "rejected",
		Reason:   reason,
	})
	s.metrics.recordRejected()
	return c, nil
}

// Get returns a claim visible to the actor: their own, their region's, or
// any claim for globally scoped reviewers.
func (s *Service) Get(ctx context.Context, claimID id.ClaimID) (*Claim, error) {
	actor := requestcontext.Actor(ctx)
	c, err := s.claims.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load claim")
	}
	switch {
	case actor.AccountID == c.SubmitterID:
	case actor.Role == id.RoleRegionalAdmin && actor.RegionID == c.RegionID:
	case actor.Role.Global():
	default:
		return nil, dErrors.New(dErrors.CodeForbidden, "claim is not visible to this actor")
	}
	return c, nil
}

// ListMine returns the actor's own claims, oldest first.
func (s *Service) ListMine(ctx context.Context) ([]*Claim, error) {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	claims, err := s.claims.ListBySubmitter(ctx, actor.AccountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list claims")
	}
	return claims, nil
}

func (s *Service) wrapTransitionErr(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "claim not found")
	case errors.Is(err, sentinel.ErrConflict):
		s.metrics.recordConflict()
		return dErrors.New(dErrors.CodeConflict, "claim status has already advanced")
	case dErrors.HasCode(err, dErrors.CodeForbidden):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "claim "+op+" failed")
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"subject", event.Subject,
			"error", err,
		)
	}
}
