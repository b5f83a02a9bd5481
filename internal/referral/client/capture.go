package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/referral"
)

// Option configures a Capturer.
type Option func(*Capturer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Capturer) { c.now = now }
}

// WithVisitorIDGenerator replaces referral.NewVisitorID.
func WithVisitorIDGenerator(gen func() string) Option {
	return func(c *Capturer) { c.newVisitorID = gen }
}

// Capturer records referral codes seen on page loads.
type Capturer struct {
	store        Store
	tracker      Tracker
	now          func() time.Time
	newVisitorID func() string

	mu       sync.Mutex // serialises visitor id creation
	inflight sync.WaitGroup
}

// NewCapturer builds a Capturer. tracker may be nil to capture without reporting.
func NewCapturer(store Store, tracker Tracker, opts ...Option) *Capturer {
	c := &Capturer{
		store:        store,
		tracker:      tracker,
		now:          time.Now,
		newVisitorID: referral.NewVisitorID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capture handles one page load. Without a ref query parameter it does nothing.
// Otherwise it persists the code and capture time, ensures a visitor id, and
// reports the visit in the background. Only local storage failures are returned;
// reporting failures are logged at debug level and dropped.
func (c *Capturer) Capture(ctx context.Context, pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("parse page url: %w", err)
	}
	q := u.Query()
	code := q.Get("ref")
	if code == "" {
		return nil
	}

	if err := c.store.Set(KeyReferralCode, code); err != nil {
		return fmt.Errorf("store referral code: %w", err)
	}
	if err := c.store.Set(KeyCapturedAt, strconv.FormatInt(c.now().UnixMilli(), 10)); err != nil {
		return fmt.Errorf("store capture time: %w", err)
	}

	visitorID, err := c.VisitorID()
	if err != nil {
		return err
	}

	if c.tracker == nil {
		return nil
	}

	landing := u.Path
	if landing == "" {
		landing = "/"
	}
	req := &models.TrackReferralRequest{
		ReferralCode: code,
		VisitorID:    visitorID,
		LandingPage:  landing,
		UTMSource:    q.Get("utm_source"),
		UTMMedium:    q.Get("utm_medium"),
		UTMCampaign:  q.Get("utm_campaign"),
	}

	// the report outlives the page load that triggered it
	trackCtx := context.WithoutCancel(ctx)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if err := c.tracker.Track(trackCtx, req); err != nil {
			slog.Debug("Referral tracking failed", "referral_code", code, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every background report has finished.
func (c *Capturer) Wait() {
	c.inflight.Wait()
}

// VisitorID returns the stored visitor id, creating and persisting one on first use.
func (c *Capturer) VisitorID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok, err := c.store.Get(KeyVisitorID)
	if err != nil {
		return "", fmt.Errorf("read visitor id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}

	id = c.newVisitorID()
	if err := c.store.Set(KeyVisitorID, id); err != nil {
		return "", fmt.Errorf("store visitor id: %w", err)
	}
	return id, nil
}

// LocalCapture returns the stored attribution as a referral.Capture, whether or
// not it is still active.
func (c *Capturer) LocalCapture() (referral.Capture, bool) {
	code, ok, err := c.store.Get(KeyReferralCode)
	if err != nil || !ok || code == "" {
		return referral.Capture{}, false
	}
	raw, ok, err := c.store.Get(KeyCapturedAt)
	if err != nil || !ok {
		return referral.Capture{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return referral.Capture{}, false
	}
	return referral.Capture{Code: code, CapturedAt: time.UnixMilli(ms), Source: referral.SourceLocal}, true
}

// ReferralCode returns the stored code while it is inside the attribution window.
// Expired codes stay in the store.
func (c *Capturer) ReferralCode() (string, bool) {
	capture, ok := c.LocalCapture()
	if !ok || !capture.ActiveAt(c.now()) {
		return "", false
	}
	return capture.Code, true
}
