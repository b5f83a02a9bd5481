package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"storefront/internal/models"
	"storefront/internal/ratelimit"
)

// Rate limit scopes. Each scope keeps its own budget per client.
const (
	ScopeReferralTrack = "referral-track"
	ScopeAdmin         = "admin"
)

// RouteOption configures optional route behavior.
type RouteOption func(*routeSettings)

type routeSettings struct {
	otelService string
	limiter     ratelimit.Limiter
}

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(s *routeSettings) { s.otelService = serviceName }
}

// WithRateLimiter guards the track and admin routes with limiter, using the
// budgets in the security.rate_limit config.
func WithRateLimiter(limiter ratelimit.Limiter) RouteOption {
	return func(s *routeSettings) { s.limiter = limiter }
}

func untracedPath(path string) bool {
	return path == "/health" ||
		path == "/metrics" ||
		path == "/api/openapi.yaml" ||
		path == "/api/docs"
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	var settings routeSettings
	for _, opt := range opts {
		opt(&settings)
	}

	router := mux.NewRouter()

	if settings.otelService != "" {
		router.Use(otelmux.Middleware(settings.otelService,
			otelmux.WithFilter(func(r *http.Request) bool {
				return !untracedPath(r.URL.Path)
			}),
		))
	}

	rl := config.Security.RateLimit
	limit := func(scope string, maxRequests int) mux.MiddlewareFunc {
		if settings.limiter == nil || !rl.Enabled {
			return func(next http.Handler) http.Handler { return next }
		}
		return ratelimit.Middleware(settings.limiter, scope, ratelimit.Options{
			MaxRequests: maxRequests,
			Window:      rl.Window,
		})
	}

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/openapi.yaml", handlers.ServeOpenAPISpec).Methods("GET")
	api.HandleFunc("/docs", handlers.ServeSwaggerUI).Methods("GET")
	api.HandleFunc("/case-studies", handlers.ListCaseStudies).Methods("GET")
	api.HandleFunc("/referral/attribution", handlers.GetAttribution).Methods("GET")

	track := api.PathPrefix("/referral/track").Subrouter()
	track.Use(limit(ScopeReferralTrack, rl.TrackMaxRequests))
	track.HandleFunc("", handlers.TrackReferral).Methods("POST")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(limit(ScopeAdmin, rl.MaxRequests))
	if config.Security.EnableAuth {
		admin.Use(authMiddleware(handlers.storage))
	}

	requirePerm := func(p Permission) mux.MiddlewareFunc {
		if !config.Security.EnableAuth {
			return func(next http.Handler) http.Handler { return next }
		}
		return RequirePermission(p)
	}

	adminRead := admin.PathPrefix("").Subrouter()
	adminRead.Use(requirePerm(PermissionRead))
	adminRead.HandleFunc("/partners", handlers.ListPartners).Methods("GET")
	adminRead.HandleFunc("/partners/{id}", handlers.GetPartner).Methods("GET")
	adminRead.HandleFunc("/partners/{id}/visits", handlers.ListPartnerVisits).Methods("GET")

	adminWrite := admin.PathPrefix("").Subrouter()
	adminWrite.Use(requirePerm(PermissionWrite))
	adminWrite.HandleFunc("/partners", handlers.CreatePartner).Methods("POST")
	adminWrite.HandleFunc("/partners/{id}/status", handlers.UpdatePartnerStatus).Methods("PUT")
	adminWrite.HandleFunc("/case-studies", handlers.CreateCaseStudy).Methods("POST")

	adminOnly := admin.PathPrefix("").Subrouter()
	adminOnly.Use(requirePerm(PermissionAdmin))
	adminOnly.HandleFunc("/partners/{id}", handlers.DeletePartner).Methods("DELETE")
	adminOnly.HandleFunc("/keys", handlers.ListAPIKeys).Methods("GET")
	adminOnly.HandleFunc("/keys", handlers.CreateAPIKey).Methods("POST")

	// Routes under a path prefix never reach the router's MethodNotAllowedHandler,
	// so wrong methods on known API paths are registered explicitly.
	api.HandleFunc("/case-studies", methodNotAllowedHandler).Methods("POST", "PUT", "DELETE", "PATCH")
	api.HandleFunc("/referral/attribution", methodNotAllowedHandler).Methods("POST", "PUT", "DELETE", "PATCH")
	api.HandleFunc("/referral/track", methodNotAllowedHandler).Methods("GET", "PUT", "DELETE", "PATCH")
	api.HandleFunc("/admin/partners", methodNotAllowedHandler).Methods("PUT", "DELETE", "PATCH")
	api.HandleFunc("/admin/partners/{id}", methodNotAllowedHandler).Methods("POST", "PUT", "PATCH")
	api.HandleFunc("/admin/partners/{id}/status", methodNotAllowedHandler).Methods("GET", "POST", "DELETE", "PATCH")
	api.HandleFunc("/admin/partners/{id}/visits", methodNotAllowedHandler).Methods("POST", "PUT", "DELETE", "PATCH")
	api.HandleFunc("/admin/case-studies", methodNotAllowedHandler).Methods("GET", "PUT", "DELETE", "PATCH")
	api.HandleFunc("/admin/keys", methodNotAllowedHandler).Methods("PUT", "DELETE", "PATCH")

	if config.Security.EnableAuth {
		router.Use(OptionalAuth(handlers.storage))
	}
	if config.Server.CORS.Enabled {
		router.Use(corsMiddleware(config.Server.CORS))
		api.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}

	edge := ReferralCookies(config.Referral)
	router.Use(mux.MiddlewareFunc(edge))
	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	// Middleware only runs on matched routes; storefront page paths reach the
	// not-found handler and still need the edge cookies.
	router.NotFoundHandler = recoveryMiddleware(edge(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := http.StatusNotFound
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeJSONError(w, code, "Not found", models.ErrorCodeNotFound)
			return
		}
		http.NotFound(w, r)
	})))

	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	return router
}

// methodNotAllowedHandler handles requests with invalid HTTP methods
func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed", models.ErrorCodeInvalidRequest)
}
