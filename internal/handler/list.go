package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/familyhub/internal/lists"
	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/state"
)

type ListHandler struct {
	app    *state.App
	logger *slog.Logger
}

func NewListHandler(app *state.App, logger *slog.Logger) *ListHandler {
	return &ListHandler{app: app, logger: logger}
}

// List handles GET /api/lists.
func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, emptyIfNil(h.app.Lists(authFrom(r))))
}

// Get handles GET /api/lists/{id}.
func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.app.List(authFrom(r), r.PathValue("id"))
	if err != nil {
		fail(w, h.logger, "get list", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Create handles POST /api/lists.
func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var l model.List
	if !decodeJSON(w, r, &l) {
		return
	}
	l, err := h.app.AddList(r.Context(), authFrom(r), l)
	if err != nil {
		fail(w, h.logger, "add list", err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// Update handles PUT /api/lists/{id}.
func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	l, err := h.app.UpdateList(r.Context(), authFrom(r), r.PathValue("id"), patch)
	if err != nil {
		fail(w, h.logger, "update list", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Delete handles DELETE /api/lists/{id}.
func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteList(r.Context(), authFrom(r), r.PathValue("id")); err != nil {
		fail(w, h.logger, "delete list", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /api/lists/{id}/items.
func (h *ListHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var in state.ItemInput
	if !decodeJSON(w, r, &in) {
		return
	}
	l, err := h.app.AddListItem(r.Context(), authFrom(r), r.PathValue("id"), in)
	if err != nil {
		fail(w, h.logger, "add list item", err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// UpdateItem handles PUT /api/lists/{id}/items/{itemID}.
func (h *ListHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch lists.ItemPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	l, err := h.app.UpdateListItem(r.Context(), authFrom(r), r.PathValue("id"), r.PathValue("itemID"), patch)
	if err != nil {
		fail(w, h.logger, "update list item", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ToggleItem handles POST /api/lists/{id}/items/{itemID}/toggle.
func (h *ListHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	l, err := h.app.ToggleListItem(r.Context(), authFrom(r), r.PathValue("id"), r.PathValue("itemID"))
	if err != nil {
		fail(w, h.logger, "toggle list item", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// DeleteItem handles DELETE /api/lists/{id}/items/{itemID}.
func (h *ListHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	l, err := h.app.DeleteListItem(r.Context(), authFrom(r), r.PathValue("id"), r.PathValue("itemID"))
	if err != nil {
		fail(w, h.logger, "delete list item", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ClearChecked handles POST /api/lists/{id}/clear-checked.
func (h *ListHandler) ClearChecked(w http.ResponseWriter, r *http.Request) {
	l, err := h.app.ClearCheckedItems(r.Context(), authFrom(r), r.PathValue("id"))
	if err != nil {
		fail(w, h.logger, "clear checked items", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Reorder handles PUT /api/lists/{id}/items/order with {"itemIds": [...]}.
func (h *ListHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemIDs []string `json:"itemIds"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.app.ReorderListItems(r.Context(), authFrom(r), r.PathValue("id"), req.ItemIDs)
	if err != nil {
		fail(w, h.logger, "reorder list items", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}
