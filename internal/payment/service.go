package payment

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"charter/internal/activation"
	"charter/internal/audit"
	"charter/internal/blob"
	"charter/internal/claim"
	id "charter/pkg/domain"
	dErrors "charter/pkg/domain-errors"
	"charter/pkg/platform/sentinel"
	"charter/pkg/platform/tx"
	"charter/pkg/requestcontext"
)

// maxCodeDraws bounds the redraw loop when issued codes collide. The code
// space holds 900 slots per base amount, so hitting this limit means the
// space is close to exhausted for that amount.
const maxCodeDraws = 10

// AuditPublisher records domain actions for the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Activator runs the post-verification cascade. It is called inside the
// verification transaction so the cascade and the status change commit
// together.
type Activator interface {
	ActivateFromPayment(ctx context.Context, outcome activation.PaymentOutcome) error
}

// Service orchestrates billing, proof intake and verification.
type Service struct {
	payments  Store
	claims    claim.Store
	blobs     blob.Store
	runner    tx.Runner
	activator Activator

	logger   *slog.Logger
	auditor  AuditPublisher
	metrics  *Metrics
	tracer   trace.Tracer
	drawCode func() int
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

// WithCodeSource overrides the unique-code draw, for deterministic tests.
func WithCodeSource(draw func() int) Option {
	return func(s *Service) { s.drawCode = draw }
}

// NewService constructs a payment Service.
func NewService(payments Store, claims claim.Store, blobs blob.Store, runner tx.Runner, activator Activator, opts ...Option) *Service {
	s := &Service{
		payments:  payments,
		claims:    claims,
		blobs:     blobs,
		runner:    runner,
		activator: activator,
		logger:    slog.Default(),
		tracer:    otel.Tracer("charter/payment"),
		drawCode: func() int {
			return CodeMin + rand.IntN(CodeMax-CodeMin+1)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueBill creates the payment record for a centrally approved claim. The
// unique code is drawn until it lands on a (base, code) pair no unresolved
// record holds; the store's uniqueness guarantee is the arbiter, so two
// issuers racing on the same pair resolve to one winner and one redraw.
func (s *Service) IssueBill(ctx context.Context, claimID id.ClaimID, baseAmount int64) (*PaymentRecord, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Role != id.RoleFinanceAdmin && actor.Role != id.RoleCentralAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "billing requires a finance or central role")
	}
	if baseAmount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "base amount must be positive")
	}

	cl, err := s.claims.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load claim")
	}
	if cl.Status != claim.StatusCentrallyApproved {
		return nil, dErrors.Newf(dErrors.CodeConflict, "claim in status %s cannot be billed", cl.Status)
	}

	now := requestcontext.Now(ctx)
	for attempt := 0; attempt < maxCodeDraws; attempt++ {
		p, err := NewPaymentRecord(id.NewPaymentID(), cl.ID, cl.SubmitterID, baseAmount, s.drawCode(), now)
		if err != nil {
			return nil, err
		}
		err = s.payments.Create(ctx, p)
		switch {
		case err == nil:
			s.emit(ctx, audit.Event{
				Action:   audit.ActionBillIssued,
				ActorID:  actor.AccountID.String(),
				Subject:  p.ID.String(),
				RegionID: cl.RegionID.String(),
			})
			s.metrics.recordIssued()
			return p, nil
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "claim already has a payment record")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			s.metrics.recordRedraw()
			continue
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store payment record")
		}
	}
	return nil, dErrors.New(dErrors.CodeConflict, "no unique code available for this amount")
}

// SubmitProof attaches a proof-of-transfer document to the submitter's own
// payment record. The blob is written before the record so a storage failure
// cannot leave the record pointing at nothing.
func (s *Service) SubmitProof(ctx context.Context, paymentID id.PaymentID, data []byte, contentType string) (*PaymentRecord, error) {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if len(data) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "proof document is required")
	}

	current, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "payment record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load payment record")
	}
	if current.SubmitterID != actor.AccountID {
		return nil, dErrors.New(dErrors.CodeForbidden, "payment record belongs to another account")
	}

	key, err := s.blobs.Put(ctx, data, contentType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store proof document")
	}

	// The transition joins the runner so it serializes against a concurrent
	// verification cascade.
	now := requestcontext.Now(ctx)
	var p *PaymentRecord
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		p, err = s.payments.Execute(ctx, paymentID,
			func(p *PaymentRecord) error {
				if p.SubmitterID != actor.AccountID {
					return dErrors.New(dErrors.CodeForbidden, "payment record belongs to another account")
				}
				if p.Status != StatusAwaitingTransfer && p.Status != StatusRejected {
					return sentinel.ErrConflict
				}
				return nil
			},
			func(p *PaymentRecord) {
				p.ApplyProof(key, now)
			},
		)
		return err
	})
	if err != nil {
		return nil, s.wrapTransitionErr(err, "proof submission")
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionProofSubmitted,
		ActorID: actor.AccountID.String(),
		Subject: p.ID.String(),
	})
	s.metrics.recordProof()
	return p, nil
}

// Verify confirms the transfer and runs the activation cascade in the same
// transaction: payment verified, claim approved and account activated commit
// as one unit. The cascade runs before the record is marked verified, so a
// cascade failure leaves the record untouched even on stores without
// rollback. Verifying an already verified record is a no-op.
func (s *Service) Verify(ctx context.Context, paymentID id.PaymentID) (*PaymentRecord, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Role != id.RoleFinanceAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "verification requires a finance role")
	}

	ctx, span := s.tracer.Start(ctx, "payment.Verify",
		trace.WithAttributes(attribute.String("payment.id", paymentID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)

	var (
		verified        *PaymentRecord
		alreadyVerified bool
	)
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.payments.FindByID(ctx, paymentID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "payment record not found")
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load payment record")
		}
		if current.Status == StatusVerified {
			verified, alreadyVerified = current, true
			return nil
		}
		if current.Status != StatusAwaitingVerification {
			return sentinel.ErrConflict
		}

		if err := s.activator.ActivateFromPayment(ctx, activation.PaymentOutcome{
			PaymentID:   current.ID,
			ClaimID:     current.ClaimID,
			SubmitterID: current.SubmitterID,
		}); err != nil {
			return err
		}

		p, err := s.payments.Execute(ctx, paymentID,
			func(p *PaymentRecord) error {
				if p.Status != StatusAwaitingVerification {
					return sentinel.ErrConflict
				}
				return nil
			},
			func(p *PaymentRecord) {
				p.ApplyVerification(actor.AccountID, now)
			},
		)
		if err != nil {
			return err
		}
		verified = p
		return nil
	})
	if err != nil {
		return nil, s.wrapTransitionErr(err, "verification")
	}
	if alreadyVerified {
		return verified, nil
	}

	s.emit(ctx, audit.Event{
		Action:   audit.ActionPaymentVerified,
		ActorID:  actor.AccountID.String(),
		Subject:  verified.ID.String(),
		Decision: "verified",
	})
	s.metrics.recordVerified()
	s.metrics.recordActivation()
	return verified, nil
}

// Reject returns the record to the submitter with a reason. The proof stays
// attached so the submitter can replace it.
func (s *Service) Reject(ctx context.Context, paymentID id.PaymentID, reason string) (*PaymentRecord, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Role != id.RoleFinanceAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "rejection requires a finance role")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}

	now := requestcontext.Now(ctx)
	var p *PaymentRecord
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var execErr error
		p, execErr = s.payments.Execute(ctx, paymentID,
			func(p *PaymentRecord) error {
				if p.Status != StatusAwaitingVerification {
					return sentinel.ErrConflict
				}
				return nil
			},
			func(p *PaymentRecord) {
				p.ApplyRejection(actor.AccountID, reason, now)
			},
		)
		return execErr
	})
	if err != nil {
		return nil, s.wrapTransitionErr(err, "rejection")
	}

	s.emit(ctx, audit.Event{
		Action:   audit.ActionPaymentRejected,
		ActorID:  actor.AccountID.String(),
		Subject:  p.ID.String(),
		Decision: "rejected",
		Reason:   reason,
	})
	s.metrics.recordRejected()
	return p, nil
}

// Get returns a payment record visible to the actor: their own or any record
// for globally scoped reviewers. ProofURL is resolved when a proof exists.
func (s *Service) Get(ctx context.Context, paymentID id.PaymentID) (*PaymentRecord, string, error) {
	actor := requestcontext.Actor(ctx)
	p, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", dErrors.New(dErrors.CodeNotFound, "payment record not found")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load payment record")
	}
	if p.SubmitterID != actor.AccountID && !actor.Role.Global() {
		return nil, "", dErrors.New(dErrors.CodeForbidden, "payment record is not visible to this actor")
	}

	var proofURL string
	if p.ProofKey != "" {
		proofURL, err = s.blobs.URL(ctx, p.ProofKey)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to resolve proof url",
				"payment_id", p.ID.String(),
				"error", err,
			)
			proofURL = ""
		}
	}
	return p, proofURL, nil
}

// GetByClaim resolves the payment record issued for a claim.
func (s *Service) GetByClaim(ctx context.Context, claimID id.ClaimID) (*PaymentRecord, error) {
	actor := requestcontext.Actor(ctx)
	p, err := s.payments.FindByClaim(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "payment record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load payment record")
	}
	if p.SubmitterID != actor.AccountID && !actor.Role.Global() {
		return nil, dErrors.New(dErrors.CodeForbidden, "payment record is not visible to this actor")
	}
	return p, nil
}

func (s *Service) wrapTransitionErr(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "payment record not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "payment status does not allow "+op)
	case dErrors.HasCode(err, dErrors.CodeForbidden),
		dErrors.HasCode(err, dErrors.CodeConflict),
		dErrors.HasCode(err, dErrors.CodeNotFound),
		dErrors.HasCode(err, dErrors.CodeUnavailable):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "payment "+op+" failed")
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
