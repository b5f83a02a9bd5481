// Package models - API response types and error handling.
//
// Response Design Principles:
// - Consistent JSON structure across all endpoints
// - Public responses never carry internal partner identifiers
// - Machine-readable error codes alongside human-readable messages
// - RFC3339 timestamps
package models

import (
	"time"
)

// TrackReferralResponse acknowledges a recorded visit.
type TrackReferralResponse struct {
	OK bool `json:"ok"`
}

// AttributionResponse reports the referral code currently credited for a visitor.
type AttributionResponse struct {
	ReferralCode string `json:"referralCode"`
	Source       string `json:"source"`
	VisitorID    string `json:"visitorId,omitempty"`
}

// ListPartnersResponse wraps the admin partner listing.
type ListPartnersResponse struct {
	Partners   []*Partner `json:"partners"`
	TotalCount int        `json:"total_count"`
}

// ListVisitsResponse wraps a partner's recorded visits.
type ListVisitsResponse struct {
	PartnerID  string           `json:"partner_id"`
	Visits     []*ReferralVisit `json:"visits"`
	TotalCount int              `json:"total_count"`
}

// ListCaseStudiesResponse wraps the public case study listing.
type ListCaseStudiesResponse struct {
	CaseStudies []*CaseStudy `json:"case_studies"`
	TotalCount  int          `json:"total_count"`
	Product     string       `json:"product,omitempty"`
}

// CreateAPIKeyResponse returns the raw key exactly once.
type CreateAPIKeyResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	Prefix      string    `json:"prefix"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// APIKeySummary is the listing view of an API key; the hash is withheld.
type APIKeySummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Prefix      string    `json:"prefix"`
	Permissions []string  `json:"permissions"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromAPIKey copies the displayable fields of k.
func (s *APIKeySummary) FromAPIKey(k *APIKey) {
	s.ID = k.ID
	s.Name = k.Name
	s.Prefix = k.Prefix
	s.Permissions = k.Permissions
	s.Enabled = k.Enabled
	s.CreatedAt = k.CreatedAt
}

// ErrorResponse provides structured error information.
//
// Error Categories:
// - Validation errors: missing or malformed input (400)
// - Not found errors: unknown or unapproved resources (404)
// - Rate limit errors: too many requests (429)
// - Internal errors: server-side failures, detail withheld (500)
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Code      string            `json:"code,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	RequestID string            `json:"request_id,omitempty"`
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
	Metrics    map[string]interface{}     `json:"metrics,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

const (
	ErrorCodeNotFound          = "NOT_FOUND"
	ErrorCodeBadRequest        = "BAD_REQUEST"
	ErrorCodeInvalidRequest    = "INVALID_REQUEST"
	ErrorCodeValidation        = "VALIDATION_ERROR"
	ErrorCodeInternalError     = "INTERNAL_ERROR"
	ErrorCodeUnauthorized      = "UNAUTHORIZED"
	ErrorCodeForbidden         = "FORBIDDEN"
	ErrorCodeConflict          = "CONFLICT"
	ErrorCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
		Metrics:    make(map[string]interface{}),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}
