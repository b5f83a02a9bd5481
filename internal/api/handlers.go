package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/referral"
	"storefront/internal/storage"
	"storefront/internal/version"
)

// ReferralTracker records referral visits. *referral.Service implements it.
type ReferralTracker interface {
	Track(ctx context.Context, req *models.TrackReferralRequest, client models.ClientInfo) error
}

// Handlers contains HTTP handlers for the storefront API
type Handlers struct {
	storage   storage.Storage
	referrals ReferralTracker
	products  *catalog.AliasTable
	version   version.Info
	startTime time.Time
	now       func() time.Time
}

// HandlerOption configures optional Handlers dependencies.
type HandlerOption func(*Handlers)

// WithProductFamilies replaces the default product alias table used by case study filtering.
func WithProductFamilies(table *catalog.AliasTable) HandlerOption {
	return func(h *Handlers) { h.products = table }
}

// WithVersion sets the build metadata reported by the health endpoint.
func WithVersion(v version.Info) HandlerOption {
	return func(h *Handlers) { h.version = v }
}

// WithHandlerClock overrides the time source.
func WithHandlerClock(now func() time.Time) HandlerOption {
	return func(h *Handlers) { h.now = now }
}

// NewHandlers creates a new handlers instance
func NewHandlers(store storage.Storage, referrals ReferralTracker, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		storage:   store,
		referrals: referrals,
		products:  catalog.NewAliasTable(catalog.DefaultProductFamilies...),
		startTime: time.Now(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthCheck handles health check requests
// GET /health
// Storage is pinged on every call; authenticated callers also see key details.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = h.version.Version
	response.Uptime = time.Since(h.startTime).Round(time.Second).String()

	status := http.StatusOK
	if err := h.storage.Ping(r.Context()); err != nil {
		slog.Error("Health check storage ping failed", "error", err)
		response.Status = models.StatusUnhealthy
		response.AddComponent("storage", models.StatusUnhealthy, "Storage is unreachable")
		status = http.StatusServiceUnavailable
	} else {
		response.AddComponent("storage", models.StatusHealthy, "Storage is operational")
	}
	response.AddComponent("api", models.StatusHealthy, "API is operational")

	securityContext := GetSecurityContext(r)
	if securityContext != nil && securityContext.HasPermission(PermissionRead) {
		response.Metrics["authentication_enabled"] = true
		response.Metrics["api_key_name"] = getAPIKeyName(securityContext)
		response.Metrics["permissions"] = securityContext.APIKey.Permissions
		response.Metrics["instance_id"] = h.version.InstanceID
	}

	h.writeJSONResponse(w, status, response)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing left to send.
		slog.Error("Error encoding JSON response", "error", err)
	}
}

// writeErrorResponse writes an error response
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	h.writeJSONResponse(w, statusCode, models.NewErrorResponse(message, errorCode))
}

// writeServiceError maps a *referral.ServiceError to its status and code.
// Anything else is reported as an opaque 500.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *referral.ServiceError
	if errors.As(err, &svcErr) {
		h.writeErrorResponse(w, svcErr.StatusCode, svcErr.Code, svcErr.Message)
		return
	}
	h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error")
}

// decodeJSON reads a size-capped JSON body, rejecting trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

const maxBodyBytes = 64 << 10

// getAPIKeyName safely extracts the API key name for logging
func getAPIKeyName(securityContext *SecurityContext) string {
	if securityContext == nil || securityContext.APIKey == nil {
		return "anonymous"
	}
	if securityContext.APIKey.Name != "" {
		return securityContext.APIKey.Name
	}
	return "unnamed-key"
}
