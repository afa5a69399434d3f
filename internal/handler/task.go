package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/state"
)

type TaskHandler struct {
	app    *state.App
	logger *slog.Logger
}

func NewTaskHandler(app *state.App, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{app: app, logger: logger}
}

// List handles GET /api/tasks. ?grouped=true returns the three status
// columns; ?status= filters to one; ?overdue=true lists overdue open tasks;
// ?assignee= filters by profile.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ac := authFrom(r)
	q := r.URL.Query()

	switch {
	case q.Get("grouped") == "true":
		writeJSON(w, http.StatusOK, h.app.TasksByStatus(ac))
		return
	case q.Get("overdue") == "true":
		writeJSON(w, http.StatusOK, emptyIfNil(h.app.OverdueTasks(ac)))
		return
	case q.Get("assignee") != "":
		writeJSON(w, http.StatusOK, emptyIfNil(h.app.TasksForUser(ac, q.Get("assignee"))))
		return
	}

	tasks := h.app.Tasks(ac)
	if s := q.Get("status"); s != "" {
		status, err := model.ParseTaskStatus(s)
		if err != nil {
			fail(w, h.logger, "list tasks", err)
			return
		}
		filtered := make([]model.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	writeJSON(w, http.StatusOK, emptyIfNil(tasks))
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var t model.Task
	if !decodeJSON(w, r, &t) {
		return
	}
	t, err := h.app.AddTask(r.Context(), authFrom(r), t)
	if err != nil {
		fail(w, h.logger, "add task", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Update handles PUT /api/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	t, err := h.app.UpdateTask(r.Context(), authFrom(r), r.PathValue("id"), patch)
	if err != nil {
		fail(w, h.logger, "update task", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /api/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteTask(r.Context(), authFrom(r), r.PathValue("id")); err != nil {
		fail(w, h.logger, "delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Toggle handles POST /api/tasks/{id}/toggle.
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	t, err := h.app.ToggleTask(r.Context(), authFrom(r), r.PathValue("id"))
	if err != nil {
		fail(w, h.logger, "toggle task", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// SetStatus handles PUT /api/tasks/{id}/status.
func (h *TaskHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.TaskStatus `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.app.SetTaskStatus(r.Context(), authFrom(r), r.PathValue("id"), req.Status)
	if err != nil {
		fail(w, h.logger, "set task status", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
