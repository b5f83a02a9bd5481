// Package models - API request types and input validation.
//
// Validation Philosophy:
// - Trim input before checking it so whitespace-only values count as missing
// - Keep validation separate from normalization for clear error reporting
// - Public endpoints reject oversize identifiers instead of storing them
package models

import (
	"errors"
	"fmt"
	"strings"
)

// MaxTrackIdentifierLength bounds referral codes and visitor ids accepted by the track endpoint.
const MaxTrackIdentifierLength = 128

// TrackReferralRequest is the body of POST /api/referral/track.
type TrackReferralRequest struct {
	ReferralCode string `json:"referralCode"`
	VisitorID    string `json:"visitorId"`
	LandingPage  string `json:"landingPage,omitempty"`
	UTMSource    string `json:"utmSource,omitempty"`
	UTMMedium    string `json:"utmMedium,omitempty"`
	UTMCampaign  string `json:"utmCampaign,omitempty"`
}

// Normalize trims surrounding whitespace from identifiers.
func (r *TrackReferralRequest) Normalize() {
	r.ReferralCode = strings.TrimSpace(r.ReferralCode)
	r.VisitorID = strings.TrimSpace(r.VisitorID)
	r.LandingPage = strings.TrimSpace(r.LandingPage)
}

// Validate requires a referral code and a visitor id.
func (r *TrackReferralRequest) Validate() error {
	if strings.TrimSpace(r.ReferralCode) == "" {
		return errors.New("referralCode is required")
	}
	if strings.TrimSpace(r.VisitorID) == "" {
		return errors.New("visitorId is required")
	}
	if len(r.ReferralCode) > MaxTrackIdentifierLength {
		return fmt.Errorf("referralCode exceeds %d characters", MaxTrackIdentifierLength)
	}
	if len(r.VisitorID) > MaxTrackIdentifierLength {
		return fmt.Errorf("visitorId exceeds %d characters", MaxTrackIdentifierLength)
	}
	return nil
}

// ClientInfo carries request metadata recorded alongside a visit.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// CreatePartnerRequest is the body of POST /api/admin/partners.
type CreatePartnerRequest struct {
	Name         string `json:"name"`
	Company      string `json:"company,omitempty"`
	Email        string `json:"email"`
	ReferralCode string `json:"referral_code"`
	Status       string `json:"status,omitempty"`
}

// Validate checks the fields an admin must supply.
func (r *CreatePartnerRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if !strings.Contains(r.Email, "@") {
		return errors.New("a valid email is required")
	}
	if err := ValidateReferralCode(strings.TrimSpace(r.ReferralCode)); err != nil {
		return err
	}
	if r.Status != "" && !IsValidPartnerStatus(strings.ToUpper(r.Status)) {
		return fmt.Errorf("invalid status: %s", r.Status)
	}
	return nil
}

// ToPartner builds a Partner from the request. Status defaults to PENDING.
func (r *CreatePartnerRequest) ToPartner(id string) *Partner {
	p := NewPartner(id, strings.TrimSpace(r.Name), strings.TrimSpace(r.Email), strings.TrimSpace(r.ReferralCode))
	p.Company = strings.TrimSpace(r.Company)
	if r.Status != "" {
		p.Status = strings.ToUpper(r.Status)
	}
	return p
}

// UpdatePartnerStatusRequest is the body of PUT /api/admin/partners/{id}/status.
type UpdatePartnerStatusRequest struct {
	Status string `json:"status"`
}

// CreateCaseStudyRequest is the body of POST /api/admin/case-studies.
type CreateCaseStudyRequest struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Product   string `json:"product"`
	Industry  string `json:"industry,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Published bool   `json:"published"`
}

// CreateAPIKeyRequest is the body of POST /api/admin/keys.
type CreateAPIKeyRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// Validate checks the key name and permission values.
func (r *CreateAPIKeyRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if len(r.Permissions) == 0 {
		return errors.New("at least one permission is required")
	}
	for _, p := range r.Permissions {
		switch p {
		case PermissionRead, PermissionWrite, PermissionAdmin:
		default:
			return fmt.Errorf("invalid permission: %s", p)
		}
	}
	return nil
}
