package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"storefront/internal/models"
)

const meterName = "storefront/ratelimit"

// Middleware returns HTTP middleware that enforces opts for every request,
// keyed by scope and ClientKey. Separate scopes keep separate budgets for the
// same client.
func Middleware(limiter Limiter, scope string, opts Options) func(http.Handler) http.Handler {
	decisions, err := otel.Meter(meterName).Int64Counter("ratelimit.decisions",
		metric.WithDescription("Rate limit decisions by scope and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		slog.Warn("Failed to create rate limit counter", "error", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + ClientKey(r)
			res := limiter.Check(r.Context(), key, opts)

			if decisions != nil {
				decisions.Add(r.Context(), 1, metric.WithAttributes(
					attribute.String("scope", scope),
					attribute.Bool("allowed", res.Success),
				))
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Success {
				retryAfter := int(res.RetryAfter(time.Now()).Round(time.Second) / time.Second)
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				errorResp := models.NewErrorResponse("Rate limit exceeded", models.ErrorCodeRateLimitExceeded)
				json.NewEncoder(w).Encode(errorResp)

				slog.Warn("Rate limit exceeded",
					"key", key,
					"limit", res.Limit,
					"retry_after", retryAfter,
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
