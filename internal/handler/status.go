package handler

import (
	"net/http"

	"github.com/dukerupert/familyhub/internal/state"
)

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status handles GET /api/status. In configuration-error mode app is nil
// and missing names the unset variables.
func Status(app *state.App, missing []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(missing) > 0 || app == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"configured": false,
				"missing":    emptyIfNil(missing),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"configured": true,
			"state":      app.Status(),
		})
	}
}
