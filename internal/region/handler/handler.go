// Package handler exposes the region registry over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"charter/internal/region"
	"charter/internal/transport/http/shared"
	dErrors "charter/pkg/domain-errors"
)

// Handler serves read-only region lookups.
type Handler struct {
	regions region.Store
}

func New(regions region.Store) *Handler {
	return &Handler{regions: regions}
}

// Register mounts the region routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/regions", h.handleList)
}

type regionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	regions, err := h.regions.List(r.Context())
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list regions"))
		return
	}
	out := make([]regionResponse, 0, len(regions))
	for _, reg := range regions {
		out = append(out, regionResponse{ID: reg.ID.String(), Name: reg.Name})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}
