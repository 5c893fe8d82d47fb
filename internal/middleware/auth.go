package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/onmission/matchd/internal/auth"
)

// Auth is a middleware that validates Bearer tokens and stores the
// requester's profile ID in the context. Requests without a valid token
// receive 401 with the standard error envelope.
func Auth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeAuthError(w, "Missing bearer token")
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				writeAuthError(w, "Invalid or expired token")
				return
			}

			ctx := SetRequesterID(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthError emits the standard envelope without importing the api
// package, which depends on this one.
func writeAuthError(w http.ResponseWriter, message string) {
	SetResponseErrorCode(w, "auth_failed")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "auth_failed",
			"message": message,
		},
	})
}
