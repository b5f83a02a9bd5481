package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/ratelimit"
	"storefront/internal/referral"
	"storefront/internal/storage"
)

// TrackReferral handles POST /api/referral/track
//
// The response never identifies the partner: success is {"ok":true}, and an
// unknown code is indistinguishable from one held by an unapproved partner.
func (h *Handlers) TrackReferral(w http.ResponseWriter, r *http.Request) {
	var req models.TrackReferralRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, "Invalid JSON body")
		return
	}

	client := models.ClientInfo{
		IPAddress: ratelimit.ClientKey(r),
		UserAgent: r.UserAgent(),
	}

	if err := h.referrals.Track(r.Context(), &req, client); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, models.TrackReferralResponse{OK: true})
}

// GetAttribution handles GET /api/referral/attribution
//
// Candidates come from the ref query parameter, the edge ref_code cookie and,
// when the client forwards its local backup, local_ref with local_captured_at
// in epoch milliseconds. The highest-precedence active code held by an approved
// partner is returned; otherwise 204.
func (h *Handlers) GetAttribution(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	query := r.URL.Query()

	candidates := []referral.Capture{
		{Code: strings.TrimSpace(query.Get("ref")), Source: referral.SourceQuery},
	}
	if c, err := r.Cookie(CookieReferralCode); err == nil {
		candidates = append(candidates, referral.Capture{Code: strings.TrimSpace(c.Value), Source: referral.SourceCookie})
	}
	if local := strings.TrimSpace(query.Get("local_ref")); local != "" {
		ms, err := strconv.ParseInt(query.Get("local_captured_at"), 10, 64)
		if err != nil || ms <= 0 {
			h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeValidation, "local_captured_at must be epoch milliseconds")
			return
		}
		candidates = append(candidates, referral.Capture{
			Code:       local,
			CapturedAt: time.UnixMilli(ms),
			Source:     referral.SourceLocal,
		})
	}

	capture, ok := referral.Resolve(now, candidates...)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	partner, err := h.storage.GetPartnerByReferralCode(r.Context(), capture.Code)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		slog.Error("Failed to resolve attribution", "referral_code", capture.Code, "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
		return
	}
	if err != nil || !partner.IsApproved() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := models.AttributionResponse{
		ReferralCode: partner.ReferralCode,
		Source:       string(capture.Source),
	}
	if c, err := r.Cookie(CookieVisitorID); err == nil && referral.IsValidVisitorID(c.Value) {
		resp.VisitorID = c.Value
	}
	h.writeJSONResponse(w, http.StatusOK, resp)
}
