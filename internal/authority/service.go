// Package authority manages reviewer roles. Its one hard rule: a region has
// at most one regional_admin, enforced by demoting the incumbent and
// promoting the successor inside a single transaction.
package authority

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"charter/internal/account"
	"charter/internal/audit"
	"charter/internal/region"
	id "charter/pkg/domain"
	dErrors "charter/pkg/domain-errors"
	"charter/pkg/platform/sentinel"
	"charter/pkg/platform/tx"
	"charter/pkg/requestcontext"
)

// AccountDirectory is the slice of the account store the registry needs.
type AccountDirectory interface {
	FindByID(ctx context.Context, accountID id.AccountID) (*account.Account, error)
	FindRegionalAdmin(ctx context.Context, regionID id.RegionID) (*account.Account, error)
	SetRole(ctx context.Context, accountID id.AccountID, role id.Role, regionID id.RegionID, now time.Time) error
}

// AuditPublisher records domain actions for the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Assignment reports the outcome of a regional admin handover.
type Assignment struct {
	PromotedID id.AccountID
	DemotedID  *id.AccountID
}

// Service is the authority registry.
type Service struct {
	accounts AccountDirectory
	regions  region.Store
	runner   tx.Runner

	logger  *slog.Logger
	auditor AuditPublisher
	metrics *Metrics
	tracer  trace.Tracer
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

// NewService constructs the authority Service.
func NewService(accounts AccountDirectory, regions region.Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		accounts: accounts,
		regions:  regions,
		runner:   runner,
		logger:   slog.Default(),
		tracer:   otel.Tracer("charter/authority"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssignRegionalAdmin hands the region's admin seat to the target account.
// The incumbent, if any, is demoted to member in the same transaction, so no
// interleaving can observe two regional admins for one region. Assigning the
// incumbent again is a no-op.
func (s *Service) AssignRegionalAdmin(ctx context.Context, accountID id.AccountID, regionID id.RegionID) (*Assignment, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Role != id.RoleCentralAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "role assignment requires a central reviewer")
	}

	ctx, span := s.tracer.Start(ctx, "authority.AssignRegionalAdmin",
		trace.WithAttributes(
			attribute.String("account.id", accountID.String()),
			attribute.String("region.id", regionID.String()),
		))
	defer span.End()

	if _, err := s.regions.FindByID(ctx, regionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown region")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to resolve region")
	}

	now := requestcontext.Now(ctx)
	var result *Assignment
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		target, err := s.accounts.FindByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "account not found")
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load account")
		}
		if !target.Activated() {
			return dErrors.New(dErrors.CodeValidation, "only activated accounts can hold the admin seat")
		}

		incumbent, err := s.accounts.FindRegionalAdmin(ctx, regionID)
		switch {
		case err == nil:
			if incumbent.ID == target.ID {
				result = &Assignment{PromotedID: target.ID}
				return nil
			}
			if err := s.accounts.SetRole(ctx, incumbent.ID, id.RoleMember, incumbent.RegionID, now); err != nil {
				return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to demote incumbent")
			}
		case errors.Is(err, sentinel.ErrNotFound):
			incumbent = nil
		default:
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to resolve incumbent")
		}

		if err := s.accounts.SetRole(ctx, target.ID, id.RoleRegionalAdmin, regionID, now); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "regional admin seat was claimed concurrently")
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to promote account")
		}

		result = &Assignment{PromotedID: target.ID}
		if incumbent != nil {
			demoted := incumbent.ID
			result.DemotedID = &demoted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{
		Action:   audit.ActionRegionalAdminAssigned,
		ActorID:  actor.AccountID.String(),
		Subject:  accountID.String(),
		RegionID: regionID.String(),
	})
	s.metrics.recordAssignment(id.RoleRegionalAdmin)
	return result, nil
}

// RevokeAdmin returns an admin account to plain membership.
func (s *Service) RevokeAdmin(ctx context.Context, accountID id.AccountID) error {
	actor := requestcontext.Actor(ctx)
	if actor.Role != id.RoleCentralAdmin {
		return dErrors.New(dErrors.CodeForbidden, "role revocation requires a central reviewer")
	}

	now := requestcontext.Now(ctx)
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		target, err := s.accounts.FindByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "account not found")
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load account")
		}
		if target.Role == id.RoleMember {
			return dErrors.New(dErrors.CodeConflict, "account holds no admin role")
		}
		if err := s.accounts.SetRole(ctx, target.ID, id.RoleMember, target.RegionID, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to revoke role")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionAdminRevoked,
		ActorID: actor.AccountID.String(),
		Subject: accountID.String(),
	})
	s.metrics.recordRevocation()
	return nil
}

// AssignCentralRole grants a globally scoped role (central_admin or
// finance_admin). Global roles carry no region, so no seat handover applies.
func (s *Service) AssignCentralRole(ctx context.Context, accountID id.AccountID, role id.Role) error {
	actor := requestcontext.Actor(ctx)
	if actor.Role != id.RoleCentralAdmin {
		return dErrors.New(dErrors.CodeForbidden, "role assignment requires a central reviewer")
	}
	if !role.Global() {
		return dErrors.Newf(dErrors.CodeValidation, "role %s is not globally scoped", role)
	}

	now := requestcontext.Now(ctx)
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		target, err := s.accounts.FindByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "account not found")
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load account")
		}
		if !target.Activated() {
			return dErrors.New(dErrors.CodeValidation, "only activated accounts can hold a central role")
		}
		if err := s.accounts.SetRole(ctx, target.ID, role, id.RegionID{}, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to assign role")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionCentralRoleAssigned,
		ActorID: actor.AccountID.String(),
		Subject: accountID.String(),
	})
	s.metrics.recordAssignment(role)
	return nil
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
