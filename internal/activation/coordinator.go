// Package activation applies the cascade that follows a verified payment:
// final claim approval plus account activation, as one atomic unit.
package activation

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"charter/internal/account"
	"charter/internal/audit"
	"charter/internal/claim"
	id "charter/pkg/domain"
	dErrors "charter/pkg/domain-errors"
	"charter/pkg/platform/sentinel"
	"charter/pkg/requestcontext"
)

// AuditPublisher records domain actions for the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// PaymentOutcome carries the identifiers of a verified payment into the
// cascade. A plain struct keeps this package independent of the payment
// module, which calls into it.
type PaymentOutcome struct {
	PaymentID   id.PaymentID
	ClaimID     id.ClaimID
	SubmitterID id.AccountID
}

// Coordinator cascades claim and account state after payment verification.
// It must be invoked inside the caller's transaction: all three state changes
// (claim approved, account active, account paid) commit together or not at
// all.
type Coordinator struct {
	claims   claim.Store
	accounts account.Store
	logger   *slog.Logger
	auditor  AuditPublisher
	tracer   trace.Tracer
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(c *Coordinator) { c.auditor = p }
}

// NewCoordinator constructs the activation coordinator.
func NewCoordinator(claims claim.Store, accounts account.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		claims:   claims,
		accounts: accounts,
		logger:   slog.Default(),
		tracer:   otel.Tracer("charter/activation"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ActivateFromPayment advances the claim to approved and the submitter's
// account to active/paid. Idempotent: an already-activated claim is a no-op.
func (c *Coordinator) ActivateFromPayment(ctx context.Context, outcome PaymentOutcome) error {
	ctx, span := c.tracer.Start(ctx, "activation.ActivateFromPayment",
		trace.WithAttributes(
			attribute.String("payment.id", outcome.PaymentID.String()),
			attribute.String("claim.id", outcome.ClaimID.String()),
		))
	defer span.End()

	now := requestcontext.Now(ctx)

	cl, err := c.claims.FindByID(ctx, outcome.ClaimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "claim for payment not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load claim for activation")
	}

	// Resolve the account before the first write so a missing submitter
	// aborts the cascade without leaving the claim half-advanced on stores
	// that cannot roll back.
	acct, err := c.accounts.FindByID(ctx, outcome.SubmitterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "submitter account not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load account for activation")
	}

	switch cl.Status {
	case claim.StatusApproved:
		// Cascade already ran; confirm the account side and stop.
		if acct.Activated() {
			return nil
		}
	case claim.StatusCentrallyApproved:
		_, err := c.claims.Execute(ctx, outcome.ClaimID,
			func(cl *claim.Claim) error {
				if cl.Status != claim.StatusCentrallyApproved {
					return sentinel.ErrConflict
				}
				return nil
			},
			func(cl *claim.Claim) {
				cl.ApplyFinalApproval(now)
			},
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "claim moved during activation")
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to approve claim")
		}
	default:
		return dErrors.Newf(dErrors.CodeConflict, "claim in status %s cannot be activated", cl.Status)
	}

	if err := c.accounts.Activate(ctx, outcome.SubmitterID, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "submitter account not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to activate account")
	}

	c.emit(ctx, audit.Event{
		Action:  audit.ActionAccountActivated,
		ActorID: requestcontext.Actor(ctx).AccountID.String(),
		Subject: outcome.SubmitterID.String(),
	})
	return nil
}

func (c *Coordinator) emit(ctx context.Context, event audit.Event) {
	if c.auditor == nil {
		return
	}
	if err := c.auditor.Emit(ctx, event); err != nil {
		c.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"subject", event.Subject,
			"error", err,
		)
	}
}
