package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/version"
)

// TrackPath is the server endpoint visits are reported to.
const TrackPath = "/api/referral/track"

// Tracker reports a captured visit to the server.
type Tracker interface {
	Track(ctx context.Context, req *models.TrackReferralRequest) error
}

// HTTPTracker posts visits as JSON to a storefront server.
type HTTPTracker struct {
	endpoint string
	client   *http.Client
}

// NewHTTPTracker targets baseURL. A nil client gets a 5 second timeout.
func NewHTTPTracker(baseURL string, client *http.Client) *HTTPTracker {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPTracker{
		endpoint: strings.TrimRight(baseURL, "/") + TrackPath,
		client:   client,
	}
}

// Track sends one request. Any non-2xx response is an error.
func (t *HTTPTracker) Track(ctx context.Context, req *models.TrackReferralRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode track request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build track request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.GetInfo().UserAgent())

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send track request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("track request rejected: %s", resp.Status)
	}
	return nil
}
