package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/familyhub/internal/auth"
	"github.com/dukerupert/familyhub/internal/model"
)

// Session is the hub's current login as seen by the HTTP layer.
type Session interface {
	CurrentProfile() (model.Profile, bool)
	Touch()
}

// RequireSession rejects requests while nobody is logged in. Otherwise it
// populates AuthContext. Only mutating requests count as activity and defer
// auto-lock; reads such as the board's own polling do not.
func RequireSession(s Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := s.CurrentProfile()
			if !ok {
				writeError(w, http.StatusUnauthorized, "no profile is logged in")
				return
			}
			if isMutation(r.Method) {
				s.Touch()
			}
			ctx := auth.WithAuth(r.Context(), auth.ForProfile(p))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession populates AuthContext when someone is logged in and
// passes the request through either way. It does not count as activity.
func OptionalSession(s Session) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, ok := s.CurrentProfile(); ok {
				r = r.WithContext(auth.WithAuth(r.Context(), auth.ForProfile(p)))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCapability checks the logged-in role against c. It must run after
// RequireSession.
func RequireCapability(c auth.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, _ := auth.FromContext(r.Context())
			if !auth.Can(ac.Role, c) {
				writeError(w, http.StatusForbidden, "requires permission to "+c.String())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
