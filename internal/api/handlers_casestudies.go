package api

import (
	"log/slog"
	"net/http"
	"strings"

	"storefront/internal/catalog"
	"storefront/internal/models"
)

// ListCaseStudies handles GET /api/case-studies?product=
// Only published studies are returned. The product filter matches exact
// identifiers and the product-family aliases.
func (h *Handlers) ListCaseStudies(w http.ResponseWriter, r *http.Request) {
	product := strings.TrimSpace(r.URL.Query().Get("product"))

	studies, err := h.storage.CaseStudies(r.Context())
	if err != nil {
		slog.Error("Failed to list case studies", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "failed to list case studies")
		return
	}

	matched := catalog.FilterCaseStudies(h.products, studies, product)
	h.writeJSONResponse(w, http.StatusOK, models.ListCaseStudiesResponse{
		CaseStudies: matched,
		TotalCount:  len(matched),
		Product:     product,
	})
}

// CreateCaseStudy handles POST /api/admin/case-studies
func (h *Handlers) CreateCaseStudy(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCaseStudyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, "Invalid JSON body")
		return
	}

	now := h.now().UTC()
	study := &models.CaseStudy{
		ID:        models.NewID(),
		Slug:      strings.TrimSpace(req.Slug),
		Title:     strings.TrimSpace(req.Title),
		Product:   strings.TrimSpace(req.Product),
		Industry:  strings.TrimSpace(req.Industry),
		Summary:   req.Summary,
		Published: req.Published,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := study.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeValidation, err.Error())
		return
	}

	if err := h.storage.SaveCaseStudy(r.Context(), study); err != nil {
		slog.Error("Failed to save case study", "slug", study.Slug, "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "failed to save case study")
		return
	}

	slog.Info("case study created",
		"event", "admin_audit",
		"case_study_id", study.ID,
		"product", study.Product,
		"actor_key_id", actorKeyID(r),
	)
	h.writeJSONResponse(w, http.StatusCreated, study)
}
