// Package handler exposes the claim lifecycle over HTTP. Handlers stay thin:
// decode, delegate, encode.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"charter/internal/claim"
	"charter/internal/ratelimit"
	"charter/internal/transport/http/shared"
	id "charter/pkg/domain"
	dErrors "charter/pkg/domain-errors"
	"charter/pkg/requestcontext"
)

// Service is the claim lifecycle surface the handler depends on.
type Service interface {
	Submit(ctx context.Context, institutionName string, regionID id.RegionID, kind claim.Kind) (*claim.Claim, error)
	ApproveRegional(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error)
	ApproveCentral(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error)
	Reject(ctx context.Context, claimID id.ClaimID, reason string) (*claim.Claim, error)
	Get(ctx context.Context, claimID id.ClaimID) (*claim.Claim, error)
	ListMine(ctx context.Context) ([]*claim.Claim, error)
}

// Handler handles claim endpoints.
type Handler struct {
	logger  *slog.Logger
	claims  Service
	limiter *ratelimit.Limiter
}

func New(claims Service, logger *slog.Logger, limiter *ratelimit.Limiter) *Handler {
	return &Handler{logger: logger, claims: claims, limiter: limiter}
}

// Register mounts the claim routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/claims", func(r chi.Router) {
		r.With(ratelimit.Middleware(h.limiter, h.logger)).Post("/", h.handleSubmit)
		r.Get("/", h.handleListMine)
		r.Get("/{claimID}", h.handleGet)
		r.Post("/{claimID}/approve-regional", h.handleApproveRegional)
		r.Post("/{claimID}/approve-central", h.handleApproveCentral)
		r.Post("/{claimID}/reject", h.handleReject)
	})
}

type submitRequest struct {
	InstitutionName string `json:"institution_name"`
	RegionID        string `json:"region_id"`
	Kind            string `json:"kind"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type claimResponse struct {
	ID              string     `json:"id"`
	SubmitterID     string     `json:"submitter_id"`
	InstitutionName string     `json:"institution_name"`
	RegionID        string     `json:"region_id"`
	Kind            string     `json:"kind"`
	Status          string     `json:"status"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	RegionalAt      *time.Time `json:"regional_reviewed_at,omitempty"`
	CentralAt       *time.Time `json:"central_reviewed_at,omitempty"`
}

func toClaimResponse(c *claim.Claim) claimResponse {
	return claimResponse{
		ID:              c.ID.String(),
		SubmitterID:     c.SubmitterID.String(),
		InstitutionName: c.InstitutionName,
		RegionID:        c.RegionID.String(),
		Kind:            string(c.Kind),
		Status:          string(c.Status),
		RejectionReason: c.RejectionReason,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		RegionalAt:      c.RegionalReviewedAt,
		CentralAt:       c.CentralReviewedAt,
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	regionID, err := id.ParseRegionID(req.RegionID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid region id"))
		return
	}
	kind, ok := claim.ParseKind(req.Kind)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "unknown claim kind"))
		return
	}

	c, err := h.claims.Submit(ctx, req.InstitutionName, regionID, kind)
	if err != nil {
		h.logFailure(ctx, "submit claim", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toClaimResponse(c))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	claims, err := h.claims.ListMine(r.Context())
	if err != nil {
		h.logFailure(r.Context(), "list claims", err)
		shared.WriteError(w, err)
		return
	}
	out := make([]claimResponse, 0, len(claims))
	for _, c := range claims {
		out = append(out, toClaimResponse(c))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid claim id"))
		return
	}
	c, err := h.claims.Get(r.Context(), claimID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toClaimResponse(c))
}

func (h *Handler) handleApproveRegional(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.claims.ApproveRegional, "approve regional")
}

func (h *Handler) handleApproveCentral(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.claims.ApproveCentral, "approve central")
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid claim id"))
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	c, err := h.claims.Reject(ctx, claimID, req.Reason)
	if err != nil {
		h.logFailure(ctx, "reject claim", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toClaimResponse(c))
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, op func(context.Context, id.ClaimID) (*claim.Claim, error), name string) {
	ctx := r.Context()
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid claim id"))
		return
	}
	c, err := op(ctx, claimID)
	if err != nil {
		h.logFailure(ctx, name, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toClaimResponse(c))
}

func (h *Handler) logFailure(ctx context.Context, op string, err error) {
	h.logger.WarnContext(ctx, "claim operation failed",
		"op", op,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
