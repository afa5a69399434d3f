package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/familyhub/internal/auth"
	"github.com/dukerupert/familyhub/internal/middleware"
	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/state"
)

// QuickHandler serves the home screen's tap actions. They work while nobody
// is logged in: the body names the acting profile and, when PINs are
// required, carries its PIN.
type QuickHandler struct {
	app     *state.App
	limiter *middleware.RateLimiter
	logger  *slog.Logger
}

func NewQuickHandler(app *state.App, limiter *middleware.RateLimiter, logger *slog.Logger) *QuickHandler {
	return &QuickHandler{app: app, limiter: limiter, logger: logger}
}

type quickRequest struct {
	UserID string           `json:"userId"`
	PIN    string           `json:"pin"`
	Status model.TaskStatus `json:"status,omitempty"`
}

// actor resolves the acting profile. PIN failures share the login limiter.
func (h *QuickHandler) actor(w http.ResponseWriter, r *http.Request, req *quickRequest) (auth.AuthContext, bool) {
	if !decodeJSON(w, r, req) {
		return auth.AuthContext{}, false
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return auth.AuthContext{}, false
	}
	key := "pin:" + req.UserID
	if !h.limiter.Allow(key, pinAttempts, pinWindow) {
		writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
		return auth.AuthContext{}, false
	}
	ac, err := h.app.ActAs(req.UserID, req.PIN)
	if err != nil {
		fail(w, h.logger, "verify pin", err)
		return auth.AuthContext{}, false
	}
	h.limiter.Reset(key)
	return ac, true
}

// CompleteChore handles POST /api/quick/chores/{id}/complete.
func (h *QuickHandler) CompleteChore(w http.ResponseWriter, r *http.Request) {
	var req quickRequest
	ac, ok := h.actor(w, r, &req)
	if !ok {
		return
	}
	res, err := h.app.CompleteChore(r.Context(), ac, req.UserID, r.PathValue("id"))
	if err != nil {
		fail(w, h.logger, "complete chore", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// TaskStatus handles PUT /api/quick/tasks/{id}/status.
func (h *QuickHandler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	var req quickRequest
	ac, ok := h.actor(w, r, &req)
	if !ok {
		return
	}
	t, err := h.app.SetTaskStatus(r.Context(), ac, r.PathValue("id"), req.Status)
	if err != nil {
		fail(w, h.logger, "set task status", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
