// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds the configuration for CORS middleware.
type CORSConfig struct {
	AllowedOrigins   []string // explicit origin allowlist; empty disables cross-origin access
	AllowedMethods   []string // defaults to the methods the v1 API serves
	AllowedHeaders   []string // defaults to Content-Type, Authorization, X-Request-ID
	AllowCredentials bool
	MaxAge           int // preflight cache duration in seconds
}

// CORS returns middleware enforcing an explicit origin allowlist. Browser
// dashboards are the only cross-origin callers of the matching API;
// service-to-service traffic carries no Origin header and passes through
// untouched. Wildcard origins are not supported: a request from an origin
// outside the allowlist is rejected with 403, and an empty allowlist
// disables cross-origin access entirely.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodDelete, http.MethodOptions,
		}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Same-origin request, or CORS disabled outright.
			if origin == "" || len(allowed) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			// The response varies by Origin even when the origin is denied.
			w.Header().Add("Vary", "Origin")

			if _, ok := allowed[origin]; !ok {
				http.Error(w, "Origin not allowed", http.StatusForbidden)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", headers)

			// Preflight requests stop here.
			if r.Method == http.MethodOptions {
				if cfg.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
