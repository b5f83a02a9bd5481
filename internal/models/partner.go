// Package models - Partners, referral visits and case studies.
// This file defines the records the attribution layer reads and writes.
//
// Design Decisions:
// - A partner's referral code is the public handle; the partner ID never leaves the admin API
// - Only APPROVED partners may accumulate visits
// - Visits are append-only facts; nothing in the service updates or deletes one
package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Partner status values. They are stored verbatim, so keep them upper-case.
const (
	PartnerStatusPending  = "PENDING"
	PartnerStatusApproved = "APPROVED"
	PartnerStatusRejected = "REJECTED"
)

// PartnerStatuses lists every accepted status value.
var PartnerStatuses = []string{
	PartnerStatusPending,
	PartnerStatusApproved,
	PartnerStatusRejected,
}

// MaxUserAgentLength caps the stored user agent to bound row size.
const MaxUserAgentLength = 500

var referralCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)

// Partner is an installer, distributor or affiliate that receives referral credit.
type Partner struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Company      string    `json:"company,omitempty"`
	Email        string    `json:"email"`
	ReferralCode string    `json:"referral_code"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewPartner creates a pending partner with timestamps set to now.
func NewPartner(id, name, email, referralCode string) *Partner {
	now := time.Now().UTC()
	return &Partner{
		ID:           id,
		Name:         name,
		Email:        email,
		ReferralCode: referralCode,
		Status:       PartnerStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsApproved reports whether visits may be attributed to the partner.
func (p *Partner) IsApproved() bool {
	return p != nil && p.Status == PartnerStatusApproved
}

// Validate checks the partner's required fields.
func (p *Partner) Validate() error {
	if p.ID == "" {
		return errors.New("partner ID cannot be empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("partner name cannot be empty")
	}
	if !strings.Contains(p.Email, "@") {
		return fmt.Errorf("invalid partner email: %s", p.Email)
	}
	if err := ValidateReferralCode(p.ReferralCode); err != nil {
		return err
	}
	if !IsValidPartnerStatus(p.Status) {
		return fmt.Errorf("invalid partner status: %s", p.Status)
	}
	return nil
}

// SetStatus moves the partner to a new status and bumps UpdatedAt.
func (p *Partner) SetStatus(status string) error {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !IsValidPartnerStatus(status) {
		return fmt.Errorf("invalid partner status: %s", status)
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// IsValidPartnerStatus reports whether status is one of PartnerStatuses.
func IsValidPartnerStatus(status string) bool {
	for _, s := range PartnerStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ValidateReferralCode checks the shape of a code assigned by an admin.
func ValidateReferralCode(code string) error {
	if code == "" {
		return errors.New("referral code cannot be empty")
	}
	if !referralCodePattern.MatchString(code) {
		return fmt.Errorf("invalid referral code %q: use 3-64 letters, digits, '-' or '_'", code)
	}
	return nil
}

// ReferralVisit is one attributed landing. Rows are insert-only.
type ReferralVisit struct {
	ID           string    `json:"id"`
	PartnerID    string    `json:"partner_id"`
	ReferralCode string    `json:"referral_code"`
	VisitorID    string    `json:"visitor_id"`
	LandingPage  string    `json:"landing_page,omitempty"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent,omitempty"`
	UTMSource    string    `json:"utm_source,omitempty"`
	UTMMedium    string    `json:"utm_medium,omitempty"`
	UTMCampaign  string    `json:"utm_campaign,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TruncateUserAgent caps ua at MaxUserAgentLength runes.
func TruncateUserAgent(ua string) string {
	runes := []rune(ua)
	if len(runes) <= MaxUserAgentLength {
		return ua
	}
	return string(runes[:MaxUserAgentLength])
}

// CaseStudy is a published installation write-up tied to a product identifier.
type CaseStudy struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Product   string    `json:"product"`
	Industry  string    `json:"industry,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the case study's required fields.
func (c *CaseStudy) Validate() error {
	if c.ID == "" {
		return errors.New("case study ID cannot be empty")
	}
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("case study title cannot be empty")
	}
	if strings.TrimSpace(c.Slug) == "" {
		return errors.New("case study slug cannot be empty")
	}
	if strings.TrimSpace(c.Product) == "" {
		return errors.New("case study product cannot be empty")
	}
	return nil
}
