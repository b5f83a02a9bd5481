package api

import (
	"log/slog"
	"net/http"
	"strings"

	"storefront/internal/models"
)

// ListAPIKeys handles GET /api/admin/keys
// Hashes are never returned; only the display prefix identifies a key.
func (h *Handlers) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.storage.ListAPIKeys(r.Context())
	if err != nil {
		slog.Error("Failed to list API keys", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "failed to list keys")
		return
	}
	resp := make([]models.APIKeySummary, len(keys))
	for i, k := range keys {
		resp[i].FromAPIKey(k)
	}
	h.writeJSONResponse(w, http.StatusOK, resp)
}

// CreateAPIKey handles POST /api/admin/keys
// The raw key appears in this response and nowhere else.
func (h *Handlers) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAPIKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeValidation, err.Error())
		return
	}

	rawKey, err := models.GenerateAPIKey()
	if err != nil {
		slog.Error("Failed to generate API key", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "failed to generate key")
		return
	}

	key := models.NewAPIKey(models.NewID(), strings.TrimSpace(req.Name), rawKey, req.Permissions)
	if err := h.storage.CreateAPIKey(r.Context(), key); err != nil {
		slog.Error("Failed to store API key", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "failed to create key")
		return
	}

	slog.Info("api key created",
		"event", "security_audit",
		"action", "create",
		"key_id", key.ID,
		"key_name", key.Name,
		"actor_key_id", actorKeyID(r),
	)

	h.writeJSONResponse(w, http.StatusCreated, models.CreateAPIKeyResponse{
		ID:          key.ID,
		Name:        key.Name,
		Key:         rawKey,
		Prefix:      key.Prefix,
		Permissions: key.Permissions,
		CreatedAt:   key.CreatedAt,
	})
}

// actorKeyID extracts the ID of the authenticated key making this request.
func actorKeyID(r *http.Request) string {
	if k := apiKeyFromContext(r.Context()); k != nil {
		return k.ID
	}
	return "unknown"
}
