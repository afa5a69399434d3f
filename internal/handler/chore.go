package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/state"
)

type ChoreHandler struct {
	app    *state.App
	logger *slog.Logger
}

func NewChoreHandler(app *state.App, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{app: app, logger: logger}
}

// List handles GET /api/chores.
func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, emptyIfNil(h.app.Chores()))
}

// Create handles POST /api/chores.
func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var c model.Chore
	if !decodeJSON(w, r, &c) {
		return
	}
	c, err := h.app.AddChore(r.Context(), authFrom(r), c)
	if err != nil {
		fail(w, h.logger, "add chore", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// Update handles PUT /api/chores/{id}.
func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	c, err := h.app.UpdateChore(r.Context(), authFrom(r), r.PathValue("id"), patch)
	if err != nil {
		fail(w, h.logger, "update chore", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /api/chores/{id}.
func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteChore(r.Context(), authFrom(r), r.PathValue("id")); err != nil {
		fail(w, h.logger, "delete chore", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type forUserRequest struct {
	UserID string `json:"userId"`
}

// targetUser reads an optional {"userId"} body, defaulting to the caller.
func targetUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req forUserRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return "", false
		}
	}
	if req.UserID == "" {
		req.UserID = authFrom(r).ProfileID
	}
	return req.UserID, true
}

// Complete handles POST /api/chores/{id}/complete. Completing a chore that
// is already done today answers 200 with alreadyCompleted set.
func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := targetUser(w, r)
	if !ok {
		return
	}
	res, err := h.app.CompleteChore(r.Context(), authFrom(r), userID, r.PathValue("id"))
	if err != nil {
		fail(w, h.logger, "complete chore", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Undo handles DELETE /api/chores/{id}/complete.
func (h *ChoreHandler) Undo(w http.ResponseWriter, r *http.Request) {
	userID, ok := targetUser(w, r)
	if !ok {
		return
	}
	if err := h.app.UndoCompletion(r.Context(), authFrom(r), userID, r.PathValue("id")); err != nil {
		fail(w, h.logger, "undo chore", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /api/profiles/{id}/chore-status.
func (h *ChoreHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.app.Profile(id); !ok {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, h.app.UserChoreStatus(id))
}
