package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func doRequest(handler http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/referral/track", nil)
	req.Header.Set("X-Forwarded-For", ip)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_AllowedRequest(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute)
	defer limiter.Close()

	handler := Middleware(limiter, "track", Options{MaxRequests: 3, Window: time.Minute})(http.HandlerFunc(okHandler))
	rr := doRequest(handler, "192.168.1.1")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "3", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rr.Header().Get("X-RateLimit-Reset"))
	assert.Empty(t, rr.Header().Get("Retry-After"))
}

func TestMiddleware_DeniedRequest(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute)
	defer limiter.Close()

	handler := Middleware(limiter, "track", Options{MaxRequests: 2, Window: time.Minute})(http.HandlerFunc(okHandler))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, doRequest(handler, "192.168.1.1").Code)
	}

	rr := doRequest(handler, "192.168.1.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	retryAfter, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)
	assert.LessOrEqual(t, retryAfter, 60)

	var errResp models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
	assert.Equal(t, "Rate limit exceeded", errResp.Message)
	assert.Equal(t, models.ErrorCodeRateLimitExceeded, errResp.Code)
}

func TestMiddleware_ScopesAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute)
	defer limiter.Close()
	opts := Options{MaxRequests: 1, Window: time.Minute}

	track := Middleware(limiter, "track", opts)(http.HandlerFunc(okHandler))
	admin := Middleware(limiter, "admin", opts)(http.HandlerFunc(okHandler))

	assert.Equal(t, http.StatusOK, doRequest(track, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(track, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, doRequest(admin, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, doRequest(track, "10.0.0.2").Code)
}

func TestMiddleware_DeniedRequestSkipsHandler(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute)
	defer limiter.Close()

	calls := 0
	handler := Middleware(limiter, "track", Options{MaxRequests: 1, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }),
	)

	doRequest(handler, "10.0.0.1")
	doRequest(handler, "10.0.0.1")
	assert.Equal(t, 1, calls)
}
