// Package handler exposes billing and reconciliation over HTTP. Handlers
// stay thin: decode, delegate, encode.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"charter/internal/payment"
	"charter/internal/ratelimit"
	"charter/internal/transport/http/shared"
	id "charter/pkg/domain"
	dErrors "charter/pkg/domain-errors"
	"charter/pkg/requestcontext"
)

// Service is the payment surface the handler depends on.
type Service interface {
	IssueBill(ctx context.Context, claimID id.ClaimID, baseAmount int64) (*payment.PaymentRecord, error)
	SubmitProof(ctx context.Context, paymentID id.PaymentID, data []byte, contentType string) (*payment.PaymentRecord, error)
	Verify(ctx context.Context, paymentID id.PaymentID) (*payment.PaymentRecord, error)
	Reject(ctx context.Context, paymentID id.PaymentID, reason string) (*payment.PaymentRecord, error)
	Get(ctx context.Context, paymentID id.PaymentID) (*payment.PaymentRecord, string, error)
	GetByClaim(ctx context.Context, claimID id.ClaimID) (*payment.PaymentRecord, error)
}

// Handler handles payment endpoints.
type Handler struct {
	logger        *slog.Logger
	payments      Service
	limiter       *ratelimit.Limiter
	maxProofBytes int64
}

func New(payments Service, logger *slog.Logger, limiter *ratelimit.Limiter, maxProofBytes int64) *Handler {
	return &Handler{logger: logger, payments: payments, limiter: limiter, maxProofBytes: maxProofBytes}
}

// Register mounts the payment routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.handleIssueBill)
		r.Get("/{paymentID}", h.handleGet)
		r.Get("/by-claim/{claimID}", h.handleGetByClaim)
		r.With(ratelimit.Middleware(h.limiter, h.logger)).Post("/{paymentID}/proof", h.handleSubmitProof)
		r.Post("/{paymentID}/verify", h.handleVerify)
		r.Post("/{paymentID}/reject", h.handleReject)
	})
}

type issueBillRequest struct {
	ClaimID    string `json:"claim_id"`
	BaseAmount int64  `json:"base_amount"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type paymentResponse struct {
	ID              string     `json:"id"`
	ClaimID         string     `json:"claim_id"`
	SubmitterID     string     `json:"submitter_id"`
	BaseAmount      int64      `json:"base_amount"`
	UniqueCode      int        `json:"unique_code"`
	TotalAmount     int64      `json:"total_amount"`
	Status          string     `json:"status"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	ProofURL        string     `json:"proof_url,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toPaymentResponse(p *payment.PaymentRecord, proofURL string) paymentResponse {
	return paymentResponse{
		ID:              p.ID.String(),
		ClaimID:         p.ClaimID.String(),
		SubmitterID:     p.SubmitterID.String(),
		BaseAmount:      p.BaseAmount,
		UniqueCode:      p.UniqueCode,
		TotalAmount:     p.TotalAmount,
		Status:          string(p.Status),
		RejectionReason: p.RejectionReason,
		ProofURL:        proofURL,
		VerifiedAt:      p.VerifiedAt,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (h *Handler) handleIssueBill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req issueBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	claimID, err := id.ParseClaimID(req.ClaimID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid claim id"))
		return
	}

	p, err := h.payments.IssueBill(ctx, claimID, req.BaseAmount)
	if err != nil {
		h.logFailure(ctx, "issue bill", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toPaymentResponse(p, ""))
}

func (h *Handler) handleSubmitProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid payment id"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxProofBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "proof document too large"))
		return
	}

	p, err := h.payments.SubmitProof(ctx, paymentID, data, r.Header.Get("Content-Type"))
	if err != nil {
		h.logFailure(ctx, "submit proof", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toPaymentResponse(p, ""))
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.payments.Verify, "verify payment")
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid payment id"))
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	p, err := h.payments.Reject(ctx, paymentID, req.Reason)
	if err != nil {
		h.logFailure(ctx, "reject payment", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toPaymentResponse(p, ""))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid payment id"))
		return
	}
	p, proofURL, err := h.payments.Get(r.Context(), paymentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toPaymentResponse(p, proofURL))
}

func (h *Handler) handleGetByClaim(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid claim id"))
		return
	}
	p, err := h.payments.GetByClaim(r.Context(), claimID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toPaymentResponse(p, ""))
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, op func(context.Context, id.PaymentID) (*payment.PaymentRecord, error), name string) {
	ctx := r.Context()
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid payment id"))
		return
	}
	p, err := op(ctx, paymentID)
	if err != nil {
		h.logFailure(ctx, name, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toPaymentResponse(p, ""))
}

func (h *Handler) logFailure(ctx context.Context, op string, err error) {
	h.logger.WarnContext(ctx, "payment operation failed",
		"op", op,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
