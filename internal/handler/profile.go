package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/state"
)

// profileView is a profile as the API shows it: the PIN hash never leaves
// the server.
type profileView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Role      model.Role `json:"role"`
	HasPIN    bool       `json:"hasPin"`
	Color     string     `json:"color"`
	Avatar    string     `json:"avatar"`
	Points    int        `json:"points"`
	CreatedAt time.Time  `json:"createdAt"`
}

func viewProfile(p model.Profile) profileView {
	return profileView{
		ID:        p.ID,
		Name:      p.Name,
		Role:      p.Role,
		HasPIN:    p.HasPIN(),
		Color:     p.Color,
		Avatar:    p.Avatar,
		Points:    p.Points,
		CreatedAt: p.CreatedAt,
	}
}

type ProfileHandler struct {
	app    *state.App
	logger *slog.Logger
}

func NewProfileHandler(app *state.App, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{app: app, logger: logger}
}

// List handles GET /api/profiles. It is public so the lock screen can show
// the profile picker.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles := h.app.Profiles()
	out := make([]profileView, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, viewProfile(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profiles":   out,
		"needsSetup": h.app.NeedsSetup(),
	})
}

// Create handles POST /api/profiles.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in state.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.app.AddProfile(r.Context(), authFrom(r), in)
	if err != nil {
		fail(w, h.logger, "add profile", err)
		return
	}
	writeJSON(w, http.StatusCreated, viewProfile(p))
}

// Update handles PUT /api/profiles/{id}.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	p, err := h.app.UpdateProfile(r.Context(), authFrom(r), r.PathValue("id"), patch)
	if err != nil {
		fail(w, h.logger, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, viewProfile(p))
}

// Delete handles DELETE /api/profiles/{id}.
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteProfile(r.Context(), authFrom(r), r.PathValue("id")); err != nil {
		fail(w, h.logger, "delete profile", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPIN handles POST /api/profiles/{id}/pin.
func (h *ProfileHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.app.SetPIN(r.Context(), authFrom(r), r.PathValue("id"), req.PIN); err != nil {
		fail(w, h.logger, "set pin", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearPIN handles DELETE /api/profiles/{id}/pin.
func (h *ProfileHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	if err := h.app.ClearPIN(r.Context(), authFrom(r), r.PathValue("id")); err != nil {
		fail(w, h.logger, "clear pin", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
