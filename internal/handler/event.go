package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/state"
)

type EventHandler struct {
	app    *state.App
	logger *slog.Logger
}

func NewEventHandler(app *state.App, logger *slog.Logger) *EventHandler {
	return &EventHandler{app: app, logger: logger}
}

// List handles GET /api/events, optionally narrowed by ?date= or by an
// inclusive ?start=&end= range.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	ac := authFrom(r)
	q := r.URL.Query()

	if date := q.Get("date"); date != "" {
		if !model.ValidDate(date) {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		writeJSON(w, http.StatusOK, emptyIfNil(h.app.EventsForDate(ac, date)))
		return
	}

	start, end := q.Get("start"), q.Get("end")
	if start != "" || end != "" {
		if !model.ValidDate(start) || !model.ValidDate(end) {
			writeError(w, http.StatusBadRequest, "start and end must both be YYYY-MM-DD")
			return
		}
		writeJSON(w, http.StatusOK, emptyIfNil(h.app.EventsForRange(ac, start, end)))
		return
	}

	writeJSON(w, http.StatusOK, emptyIfNil(h.app.Events(ac)))
}

// Create handles POST /api/events.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var e model.Event
	if !decodeJSON(w, r, &e) {
		return
	}
	e, err := h.app.AddEvent(r.Context(), authFrom(r), e)
	if err != nil {
		fail(w, h.logger, "add event", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// Update handles PUT /api/events/{id}.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	e, err := h.app.UpdateEvent(r.Context(), authFrom(r), r.PathValue("id"), patch)
	if err != nil {
		fail(w, h.logger, "update event", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Delete handles DELETE /api/events/{id}.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteEvent(r.Context(), authFrom(r), r.PathValue("id")); err != nil {
		fail(w, h.logger, "delete event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
