package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/familyhub/internal/middleware"
	"github.com/dukerupert/familyhub/internal/session"
	"github.com/dukerupert/familyhub/internal/state"
)

// PIN attempts allowed per profile per minute.
const (
	pinAttempts = 5
	pinWindow   = time.Minute
)

type SessionHandler struct {
	app     *state.App
	limiter *middleware.RateLimiter
	logger  *slog.Logger
}

func NewSessionHandler(app *state.App, limiter *middleware.RateLimiter, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{app: app, limiter: limiter, logger: logger}
}

// sessionView carries the settings the lock screen needs before anyone
// logs in.
type sessionView struct {
	session.Snapshot
	Profile    *profileView `json:"profile,omitempty"`
	RequirePIN bool         `json:"requirePin"`
	NeedsSetup bool         `json:"needsSetup"`
	FamilyName string       `json:"familyName"`
	Use24Hour  bool         `json:"use24Hour"`
}

func (h *SessionHandler) view() sessionView {
	settings := h.app.Settings()
	v := sessionView{
		Snapshot:   h.app.Session.Snapshot(),
		RequirePIN: settings.RequirePin,
		NeedsSetup: h.app.NeedsSetup(),
		FamilyName: settings.FamilyName,
		Use24Hour:  settings.Use24Hour,
	}
	if p, ok := h.app.CurrentProfile(); ok {
		pv := viewProfile(p)
		v.Profile = &pv
	}
	return v
}

// Get handles GET /api/session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.view())
}

// Login handles POST /api/session/login.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProfileID string `json:"profileId"`
		PIN       string `json:"pin"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProfileID == "" {
		writeError(w, http.StatusBadRequest, "profileId is required")
		return
	}

	key := "pin:" + req.ProfileID
	if !h.limiter.Allow(key, pinAttempts, pinWindow) {
		writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
		return
	}

	p, err := h.app.Login(req.ProfileID, req.PIN)
	if err != nil {
		if errors.Is(err, session.ErrIncorrectPIN) {
			h.logger.Info("incorrect pin", "profile_id", req.ProfileID, "remote", middleware.RealIP(r))
		}
		fail(w, h.logger, "log in", err)
		return
	}
	h.limiter.Reset(key)
	h.logger.Info("profile logged in", "profile_id", p.ID)
	writeJSON(w, http.StatusOK, h.view())
}

// Logout handles POST /api/session/logout.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.app.Session.Logout()
	writeJSON(w, http.StatusOK, h.view())
}

// Activity handles POST /api/session/activity. The session middleware has
// already refreshed the activity timestamp.
func (h *SessionHandler) Activity(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Privacy handles PUT /api/session/privacy.
func (h *SessionHandler) Privacy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	h.app.Session.SetPrivacy(req.Enabled)
	writeJSON(w, http.StatusOK, h.view())
}
