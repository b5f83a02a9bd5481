package api

import (
	"net/http"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/referral"
)

// Cookies written by the edge referral carrier.
const (
	CookieReferralCode = "ref_code"
	CookieLandingPage  = "ref_landing"
	CookieVisitorID    = "visitor_id"
)

// ReferralCookies returns middleware that carries referral attribution in
// cookies. On any request outside cfg.ExcludedPaths it stores a well-formed
// ?ref= code and the landing path for the attribution window, and issues a
// visitor id cookie when the browser has none. It never blocks the request.
func ReferralCookies(cfg models.ReferralConfig) func(http.Handler) http.Handler {
	visitorMaxAge := cfg.VisitorCookieMaxAge
	if visitorMaxAge <= 0 {
		visitorMaxAge = referral.AttributionWindow
	}

	cookie := func(name, value string, maxAge time.Duration) *http.Cookie {
		return &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   cfg.CookieDomain,
			MaxAge:   int(maxAge / time.Second),
			Secure:   cfg.CookieSecure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExcludedPath(r.URL.Path, cfg.ExcludedPaths) {
				next.ServeHTTP(w, r)
				return
			}

			if code := strings.TrimSpace(r.URL.Query().Get("ref")); code != "" && models.ValidateReferralCode(code) == nil {
				http.SetCookie(w, cookie(CookieReferralCode, code, referral.AttributionWindow))
				http.SetCookie(w, cookie(CookieLandingPage, r.URL.Path, referral.AttributionWindow))
			}

			if _, err := r.Cookie(CookieVisitorID); err != nil {
				id := referral.NewVisitorID()
				http.SetCookie(w, cookie(CookieVisitorID, id, visitorMaxAge))
				r.AddCookie(&http.Cookie{Name: CookieVisitorID, Value: id})
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isExcludedPath(path string, excluded []string) bool {
	for _, prefix := range excluded {
		if path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
