// Package referral records partner-attributed visits and decides which
// referral code a visitor is currently credited to.
package referral

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"storefront/internal/models"
	"storefront/internal/storage"
)

const meterName = "storefront/referral"

// PartnerDirectory resolves referral codes to partners.
// Implementations return an error wrapping storage.ErrNotFound for unknown codes.
type PartnerDirectory interface {
	GetPartnerByReferralCode(ctx context.Context, code string) (*models.Partner, error)
}

// VisitLog is the append-only visit record store.
type VisitLog interface {
	InsertReferralVisit(ctx context.Context, visit *models.ReferralVisit) error
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for visit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the visit ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// Service handles referral tracking business logic
type Service struct {
	partners PartnerDirectory
	visits   VisitLog
	now      func() time.Time
	newID    func() string
	recorded metric.Int64Counter
}

// NewService creates a referral service over the given partner directory and visit log.
func NewService(partners PartnerDirectory, visits VisitLog, opts ...Option) *Service {
	s := &Service{
		partners: partners,
		visits:   visits,
		now:      time.Now,
		newID:    models.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}

	recorded, err := otel.Meter(meterName).Int64Counter("referral.visits.recorded",
		metric.WithDescription("Referral visits appended to the visit log"),
		metric.WithUnit("{visit}"),
	)
	if err != nil {
		slog.Warn("Failed to create referral visit counter", "error", err)
	}
	s.recorded = recorded
	return s
}

// Track records one visit for an approved partner's referral code.
//
// It returns a *ServiceError: validation (400) when the code or visitor id is
// missing, not found (404) when no approved partner holds the code, internal
// (500) when the directory or visit log fails. The store is called at most once
// per step and never retried. Every successful call inserts a new record.
func (s *Service) Track(ctx context.Context, req *models.TrackReferralRequest, client models.ClientInfo) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return NewValidationError(err.Error(), err)
	}

	partner, err := s.partners.GetPartnerByReferralCode(ctx, req.ReferralCode)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		slog.Error("Failed to look up referral partner", "referral_code", req.ReferralCode, "error", err)
		return NewInternalError("failed to record referral visit", err)
	}
	// Unknown and unapproved codes are indistinguishable to the caller.
	if err != nil || !partner.IsApproved() {
		return NewNotFoundError("invalid referral code")
	}

	ipAddress := client.IPAddress
	if ipAddress == "" {
		ipAddress = "unknown"
	}

	visit := &models.ReferralVisit{
		ID:           s.newID(),
		PartnerID:    partner.ID,
		ReferralCode: partner.ReferralCode,
		VisitorID:    req.VisitorID,
		LandingPage:  req.LandingPage,
		IPAddress:    ipAddress,
		UserAgent:    models.TruncateUserAgent(client.UserAgent),
		UTMSource:    req.UTMSource,
		UTMMedium:    req.UTMMedium,
		UTMCampaign:  req.UTMCampaign,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.visits.InsertReferralVisit(ctx, visit); err != nil {
		slog.Error("Failed to insert referral visit", "partner_id", partner.ID, "error", err)
		return NewInternalError("failed to record referral visit", err)
	}

	if s.recorded != nil {
		s.recorded.Add(ctx, 1)
	}
	slog.Debug("Referral visit recorded", "partner_id", partner.ID, "visitor_id", req.VisitorID)
	return nil
}
