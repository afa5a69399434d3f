package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/state"
)

type SettingsHandler struct {
	app    *state.App
	logger *slog.Logger
}

func NewSettingsHandler(app *state.App, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{app: app, logger: logger}
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Settings())
}

// Update handles PUT /api/settings with a partial settings object.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.SettingsPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	s, err := h.app.UpdateSettings(r.Context(), authFrom(r), patch)
	if err != nil {
		fail(w, h.logger, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
