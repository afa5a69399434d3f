package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
)

// RequireConfigured answers every /api/ request with 503 and the list of
// missing settings while the store connection parameters are incomplete.
// Health checks and the status endpoint still get through.
func RequireConfigured(missing []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(missing) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api/status" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{
				"error":   "hub is not configured",
				"missing": missing,
			})
		})
	}
}
