package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/familyhub/internal/photo"
	"github.com/dukerupert/familyhub/internal/state"
)

type PhotoHandler struct {
	app    *state.App
	logger *slog.Logger
}

func NewPhotoHandler(app *state.App, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{app: app, logger: logger}
}

// List handles GET /api/photos?sort=newest|oldest|favorites.
// ?favorites=true returns only favorites.
func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("favorites") == "true" {
		writeJSON(w, http.StatusOK, emptyIfNil(h.app.FavoritePhotos()))
		return
	}
	order, err := photo.ParseSortOrder(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(h.app.Photos(order)))
}

// Create handles POST /api/photos.
func (h *PhotoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in state.PhotoInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.app.AddPhoto(r.Context(), authFrom(r), in)
	if err != nil {
		fail(w, h.logger, "add photo", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Update handles PUT /api/photos/{id}.
func (h *PhotoHandler) Update(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	p, err := h.app.UpdatePhoto(r.Context(), authFrom(r), r.PathValue("id"), patch)
	if err != nil {
		fail(w, h.logger, "update photo", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Favorite handles POST /api/photos/{id}/favorite.
func (h *PhotoHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.ToggleFavorite(r.Context(), authFrom(r), r.PathValue("id"))
	if err != nil {
		fail(w, h.logger, "toggle favorite", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/photos/{id}.
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeletePhoto(r.Context(), authFrom(r), r.PathValue("id")); err != nil {
		fail(w, h.logger, "delete photo", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
