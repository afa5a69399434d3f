package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/familyhub/internal/backup"
)

type BackupHandler struct {
	manager *backup.Manager
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, logger: logger}
}

// Run handles POST /api/backup with {"passphrase": ...}. The backup runs
// within the request.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	record, err := h.manager.RunNow(r.Context(), req.Passphrase)
	if err != nil {
		fail(w, h.logger, "run backup", err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// Status handles GET /api/backup/status.
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

// List handles GET /api/backups.
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.manager.Backups(r.Context())
	if err != nil {
		fail(w, h.logger, "list backups", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(records))
}
