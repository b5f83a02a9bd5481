package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/models"
	"storefront/internal/storage"
)

// InstrumentedStorage wraps a storage.Storage implementation with
// OpenTelemetry tracing and metrics instrumentation.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedStorage creates a new storage wrapper that records trace spans,
// operation latency histograms, and error counters for every storage method call.
func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	tracer := otel.Tracer("storefront/storage")
	meter := otel.Meter("storefront/storage")

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of storage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of storage operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStorage) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "storage."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("storage.operation", operation),
		}, attrs...)...),
	)
	return ctx, span
}

func (s *InstrumentedStorage) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	s.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (s *InstrumentedStorage) Partners(ctx context.Context) ([]*models.Partner, error) {
	ctx, span := s.startSpan(ctx, "Partners")
	start := time.Now()
	result, err := s.inner.Partners(ctx)
	s.record(ctx, span, "Partners", start, err)
	return result, err
}

func (s *InstrumentedStorage) GetPartner(ctx context.Context, id string) (*models.Partner, error) {
	ctx, span := s.startSpan(ctx, "GetPartner", attribute.String("partner_id", id))
	start := time.Now()
	result, err := s.inner.GetPartner(ctx, id)
	s.record(ctx, span, "GetPartner", start, err)
	return result, err
}

func (s *InstrumentedStorage) GetPartnerByReferralCode(ctx context.Context, code string) (*models.Partner, error) {
	ctx, span := s.startSpan(ctx, "GetPartnerByReferralCode", attribute.String("referral_code", code))
	start := time.Now()
	result, err := s.inner.GetPartnerByReferralCode(ctx, code)
	s.record(ctx, span, "GetPartnerByReferralCode", start, err)
	return result, err
}

func (s *InstrumentedStorage) SavePartner(ctx context.Context, partner *models.Partner) error {
	ctx, span := s.startSpan(ctx, "SavePartner",
		attribute.String("partner_id", partner.ID),
		attribute.String("referral_code", partner.ReferralCode),
	)
	start := time.Now()
	err := s.inner.SavePartner(ctx, partner)
	s.record(ctx, span, "SavePartner", start, err)
	return err
}

func (s *InstrumentedStorage) DeletePartner(ctx context.Context, id string) error {
	ctx, span := s.startSpan(ctx, "DeletePartner", attribute.String("partner_id", id))
	start := time.Now()
	err := s.inner.DeletePartner(ctx, id)
	s.record(ctx, span, "DeletePartner", start, err)
	return err
}

func (s *InstrumentedStorage) InsertReferralVisit(ctx context.Context, visit *models.ReferralVisit) error {
	ctx, span := s.startSpan(ctx, "InsertReferralVisit",
		attribute.String("partner_id", visit.PartnerID),
		attribute.String("referral_code", visit.ReferralCode),
	)
	start := time.Now()
	err := s.inner.InsertReferralVisit(ctx, visit)
	s.record(ctx, span, "InsertReferralVisit", start, err)
	return err
}

func (s *InstrumentedStorage) ReferralVisits(ctx context.Context, partnerID string) ([]*models.ReferralVisit, error) {
	ctx, span := s.startSpan(ctx, "ReferralVisits", attribute.String("partner_id", partnerID))
	start := time.Now()
	result, err := s.inner.ReferralVisits(ctx, partnerID)
	s.record(ctx, span, "ReferralVisits", start, err)
	return result, err
}

func (s *InstrumentedStorage) CaseStudies(ctx context.Context) ([]*models.CaseStudy, error) {
	ctx, span := s.startSpan(ctx, "CaseStudies")
	start := time.Now()
	result, err := s.inner.CaseStudies(ctx)
	s.record(ctx, span, "CaseStudies", start, err)
	return result, err
}

func (s *InstrumentedStorage) SaveCaseStudy(ctx context.Context, study *models.CaseStudy) error {
	ctx, span := s.startSpan(ctx, "SaveCaseStudy",
		attribute.String("case_study_id", study.ID),
		attribute.String("product", study.Product),
	)
	start := time.Now()
	err := s.inner.SaveCaseStudy(ctx, study)
	s.record(ctx, span, "SaveCaseStudy", start, err)
	return err
}

func (s *InstrumentedStorage) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	ctx, span := s.startSpan(ctx, "CreateAPIKey", attribute.String("key_id", key.ID))
	start := time.Now()
	err := s.inner.CreateAPIKey(ctx, key)
	s.record(ctx, span, "CreateAPIKey", start, err)
	return err
}

func (s *InstrumentedStorage) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	ctx, span := s.startSpan(ctx, "GetAPIKeyByHash")
	start := time.Now()
	result, err := s.inner.GetAPIKeyByHash(ctx, hash)
	s.record(ctx, span, "GetAPIKeyByHash", start, err)
	return result, err
}

func (s *InstrumentedStorage) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	ctx, span := s.startSpan(ctx, "ListAPIKeys")
	start := time.Now()
	result, err := s.inner.ListAPIKeys(ctx)
	s.record(ctx, span, "ListAPIKeys", start, err)
	return result, err
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping")
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record(ctx, span, "Ping", start, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
