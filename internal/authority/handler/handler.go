// Package handler exposes role administration over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"charter/internal/authority"
	"charter/internal/transport/http/shared"
	id "charter/pkg/domain"
	dErrors "charter/pkg/domain-errors"
	"charter/pkg/requestcontext"
)

// Service is the authority surface the handler depends on.
type Service interface {
	AssignRegionalAdmin(ctx context.Context, accountID id.AccountID, regionID id.RegionID) (*authority.Assignment, error)
	RevokeAdmin(ctx context.Context, accountID id.AccountID) error
	AssignCentralRole(ctx context.Context, accountID id.AccountID, role id.Role) error
}

// Handler handles role administration endpoints.
type Handler struct {
	logger    *slog.Logger
	authority Service
}

func New(authority Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, authority: authority}
}

// Register mounts the role administration routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/authority", func(r chi.Router) {
		r.Post("/regions/{regionID}/admin", h.handleAssignRegional)
		r.Post("/accounts/{accountID}/revoke-admin", h.handleRevoke)
		r.Post("/accounts/{accountID}/role", h.handleAssignCentral)
	})
}

type assignRegionalRequest struct {
	AccountID string `json:"account_id"`
}

type assignCentralRequest struct {
	Role string `json:"role"`
}

type assignmentResponse struct {
	PromotedID string `json:"promoted_id"`
	DemotedID  string `json:"demoted_id,omitempty"`
}

func (h *Handler) handleAssignRegional(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regionID, err := id.ParseRegionID(chi.URLParam(r, "regionID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid region id"))
		return
	}
	var req assignRegionalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	accountID, err := id.ParseAccountID(req.AccountID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account id"))
		return
	}

	result, err := h.authority.AssignRegionalAdmin(ctx, accountID, regionID)
	if err != nil {
		h.logFailure(ctx, "assign regional admin", err)
		shared.WriteError(w, err)
		return
	}
	resp := assignmentResponse{PromotedID: result.PromotedID.String()}
	if result.DemotedID != nil {
		resp.DemotedID = result.DemotedID.String()
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleAssignCentral(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account id"))
		return
	}
	var req assignCentralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	role, ok := id.ParseRole(req.Role)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "unknown role"))
		return
	}

	if err := h.authority.AssignCentralRole(ctx, accountID, role); err != nil {
		h.logFailure(ctx, "assign central role", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, assignmentResponse{PromotedID: accountID.String()})
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid account id"))
		return
	}

	if err := h.authority.RevokeAdmin(ctx, accountID); err != nil {
		h.logFailure(ctx, "revoke admin", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logFailure(ctx context.Context, op string, err error) {
	h.logger.WarnContext(ctx, "role operation failed",
		"op", op,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
