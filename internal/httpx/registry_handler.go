package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-donation-fulfillment/internal/registry"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type RegistryHandler struct {
	Service *registry.Service
	Log     *zap.Logger
}

func (h *RegistryHandler) Register(r chi.Router) {
	r.Post("/institute-requests", h.createRequest)
	r.Get("/institute-requests", h.listRequests)
	r.Post("/institute-requests/{id}/fulfill", h.fulfillRequest)
	r.Post("/volunteer-opportunities", h.createOpportunity)
	r.Get("/volunteer-opportunities", h.listOpportunities)
	r.Post("/volunteer-opportunities/{id}/fill", h.fillOpportunity)
}

func (h *RegistryHandler) createRequest(w http.ResponseWriter, r *http.Request) {
	var req createRequestReq
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.Service.CreateInstituteRequest(ctx, req.InstituteID, toItems(req.Items), registry.Urgency(req.Urgency))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// listRequests filters by ?institute_id= and ?status=.
func (h *RegistryHandler) listRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Service.ListInstituteRequests(ctx, registry.RequestFilter{
		InstituteID: q.Get("institute_id"),
		Status:      registry.RequestStatus(q.Get("status")),
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RegistryHandler) fulfillRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Service.MarkFulfilled(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RegistryHandler) createOpportunity(w http.ResponseWriter, r *http.Request) {
	var req createOpportunityReq
	if !decode(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.Service.CreateVolunteerOpportunity(ctx, registry.OpportunityInput{
		InstituteID: req.InstituteID,
		Title:       req.Title,
		Description: req.Description,
		Skills:      req.Skills,
		Date:        req.Date,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *RegistryHandler) listOpportunities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Service.ListVolunteerOpportunities(ctx, registry.OpportunityFilter{
		InstituteID: q.Get("institute_id"),
		Status:      registry.OpportunityStatus(q.Get("status")),
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RegistryHandler) fillOpportunity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Service.MarkFilled(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
