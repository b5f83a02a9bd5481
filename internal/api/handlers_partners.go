package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"storefront/internal/models"
	"storefront/internal/storage"
)

// ListPartners handles GET /api/admin/partners
func (h *Handlers) ListPartners(w http.ResponseWriter, r *http.Request) {
	partners, err := h.storage.Partners(r.Context())
	if err != nil {
		slog.Error("Failed to list partners", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "failed to list partners")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.ListPartnersResponse{
		Partners:   partners,
		TotalCount: len(partners),
	})
}

// CreatePartner handles POST /api/admin/partners
func (h *Handlers) CreatePartner(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePartnerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeValidation, err.Error())
		return
	}

	partner := req.ToPartner(models.NewID())
	if err := h.storage.SavePartner(r.Context(), partner); err != nil {
		if errors.Is(err, storage.ErrDuplicateReferralCode) {
			h.writeErrorResponse(w, http.StatusConflict, models.ErrorCodeConflict, "referral code already in use")
			return
		}
		slog.Error("Failed to create partner", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "failed to create partner")
		return
	}

	slog.Info("partner created",
		"event", "admin_audit",
		"partner_id", partner.ID,
		"referral_code", partner.ReferralCode,
		"actor_key_id", actorKeyID(r),
	)
	h.writeJSONResponse(w, http.StatusCreated, partner)
}

// GetPartner handles GET /api/admin/partners/{id}
func (h *Handlers) GetPartner(w http.ResponseWriter, r *http.Request) {
	partner, ok := h.loadPartner(w, r)
	if !ok {
		return
	}
	h.writeJSONResponse(w, http.StatusOK, partner)
}

// UpdatePartnerStatus handles PUT /api/admin/partners/{id}/status
func (h *Handlers) UpdatePartnerStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePartnerStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, "Invalid JSON body")
		return
	}

	partner, ok := h.loadPartner(w, r)
	if !ok {
		return
	}
	previous := partner.Status
	if err := partner.SetStatus(req.Status); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeValidation, err.Error())
		return
	}

	if err := h.storage.SavePartner(r.Context(), partner); err != nil {
		slog.Error("Failed to update partner status", "partner_id", partner.ID, "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "failed to update partner")
		return
	}

	slog.Info("partner status changed",
		"event", "admin_audit",
		"partner_id", partner.ID,
		"from", previous,
		"to", partner.Status,
		"actor_key_id", actorKeyID(r),
	)
	h.writeJSONResponse(w, http.StatusOK, partner)
}

// DeletePartner handles DELETE /api/admin/partners/{id}
// Partners with recorded visits cannot be deleted; reject them instead.
func (h *Handlers) DeletePartner(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.storage.DeletePartner(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			h.writeErrorResponse(w, http.StatusNotFound, models.ErrorCodeNotFound, "partner not found")
		case errors.Is(err, storage.ErrHasDependencies):
			h.writeErrorResponse(w, http.StatusConflict, models.ErrorCodeConflict, "partner has recorded visits; reject it instead")
		default:
			slog.Error("Failed to delete partner", "partner_id", id, "error", err)
			h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "failed to delete partner")
		}
		return
	}

	slog.Info("partner deleted",
		"event", "admin_audit",
		"partner_id", id,
		"actor_key_id", actorKeyID(r),
	)
	w.WriteHeader(http.StatusNoContent)
}

// ListPartnerVisits handles GET /api/admin/partners/{id}/visits
func (h *Handlers) ListPartnerVisits(w http.ResponseWriter, r *http.Request) {
	partner, ok := h.loadPartner(w, r)
	if !ok {
		return
	}
	visits, err := h.storage.ReferralVisits(r.Context(), partner.ID)
	if err != nil {
		slog.Error("Failed to list referral visits", "partner_id", partner.ID, "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "failed to list visits")
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.ListVisitsResponse{
		PartnerID:  partner.ID,
		Visits:     visits,
		TotalCount: len(visits),
	})
}

// loadPartner fetches the partner named by the {id} route variable, writing
// the error response itself when it cannot.
func (h *Handlers) loadPartner(w http.ResponseWriter, r *http.Request) (*models.Partner, bool) {
	id := mux.Vars(r)["id"]
	partner, err := h.storage.GetPartner(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, models.ErrorCodeNotFound, "partner not found")
		} else {
			slog.Error("Failed to load partner", "partner_id", id, "error", err)
			h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "failed to load partner")
		}
		return nil, false
	}
	return partner, true
}
