package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/storage"
)

// newTestAPIKey creates an API key in the store and returns the raw key.
func newTestAPIKey(t *testing.T, store storage.Storage, name, rawKey string, perms []string, enabled bool) string {
	t.Helper()
	ak := models.NewAPIKey(models.NewID(), name, rawKey, perms)
	ak.Enabled = enabled
	require.NoError(t, store.CreateAPIKey(context.Background(), ak))
	return rawKey
}

func TestAuthMiddlewareWithStorage(t *testing.T) {
	store, err := storage.NewMemoryStorage(storage.Config{})
	require.NoError(t, err)

	validKey := newTestAPIKey(t, store, "Valid Key", "valid-raw-key", []string{"read"}, true)
	newTestAPIKey(t, store, "Disabled Key", "disabled-raw-key", []string{"admin"}, false)

	mw := authMiddleware(store)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotNil(t, GetSecurityContext(r))
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"valid key returns 200", "Bearer " + validKey, http.StatusOK},
		{"missing authorization header returns 401", "", http.StatusUnauthorized},
		{"invalid key returns 401", "Bearer totally-invalid-key", http.StatusUnauthorized},
		{"disabled key returns 401", "Bearer disabled-raw-key", http.StatusUnauthorized},
		{"invalid bearer format returns 401", "InvalidFormat", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/partners", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			mw(handler).ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestOptionalAuthWithStorage(t *testing.T) {
	store, err := storage.NewMemoryStorage(storage.Config{})
	require.NoError(t, err)

	validKey := newTestAPIKey(t, store, "Valid Key", "opt-valid-key", []string{"read"}, true)

	tests := []struct {
		name           string
		authHeader     string
		expectKeyInCtx bool
	}{
		{"valid key sets context", "Bearer " + validKey, true},
		{"no header passes through", "", false},
		{"bad format passes through", "Token abc", false},
		{"unknown key passes through", "Bearer nope", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotKey bool
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotKey = GetSecurityContext(r) != nil
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			OptionalAuth(store)(handler).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.expectKeyInCtx, gotKey)
		})
	}
}

func TestSecurityContext_HasPermission(t *testing.T) {
	tests := []struct {
		name     string
		perms    []string
		required Permission
		want     bool
	}{
		{"admin grants write", []string{"admin"}, PermissionWrite, true},
		{"write grants read", []string{"write"}, PermissionRead, true},
		{"write denies admin", []string{"write"}, PermissionAdmin, false},
		{"read denies write", []string{"read"}, PermissionWrite, false},
		{"empty denies read", nil, PermissionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &SecurityContext{APIKey: &models.APIKey{Permissions: tt.perms, Enabled: true}}
			assert.Equal(t, tt.want, sc.HasPermission(tt.required))
		})
	}

	var nilContext *SecurityContext
	assert.False(t, nilContext.HasPermission(PermissionRead))
}

func TestRequirePermission_NoContext(t *testing.T) {
	handler := RequirePermission(PermissionRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a security context")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/partners", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), models.ErrorCodeInternalError)
	assert.NotContains(t, rr.Body.String(), "boom")
}

func TestLoggingMiddleware_PassesStatus(t *testing.T) {
	handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestCORSMiddleware(t *testing.T) {
	cfg := models.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://shop.example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/referral/track", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	rr := httptest.NewRecorder()
	corsMiddleware(cfg)(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://shop.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "600", rr.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/api/case-studies", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	corsMiddleware(cfg)(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/health"},
		{http.MethodGet, "/api/referral/track"},
		{http.MethodPut, "/api/referral/track"},
		{http.MethodPost, "/api/referral/attribution"},
		{http.MethodPost, "/api/case-studies"},
		{http.MethodPatch, "/api/admin/partners"},
		{http.MethodPost, "/api/admin/partners/some-id"},
		{http.MethodGet, "/api/admin/partners/some-id/status"},
		{http.MethodDelete, "/api/admin/partners/some-id/visits"},
		{http.MethodGet, "/api/admin/case-studies"},
		{http.MethodDelete, "/api/admin/keys"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, nil, withAuth(testAdminKey))
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, models.ErrorCodeInvalidRequest, decodeError(t, rec).Code)
		})
	}
}

func TestMethodNotAllowed_AllowedMethodsStillRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/admin/partners", nil, withAuth(testAdminKey))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/case-studies", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
