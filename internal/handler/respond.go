package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/familyhub/internal/auth"
	"github.com/dukerupert/familyhub/internal/backup"
	"github.com/dukerupert/familyhub/internal/docstore"
	"github.com/dukerupert/familyhub/internal/lists"
	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/photo"
	"github.com/dukerupert/familyhub/internal/push"
	"github.com/dukerupert/familyhub/internal/session"
	"github.com/dukerupert/familyhub/internal/state"
)

// maxBody bounds request bodies; photos arrive as inline data URLs.
const maxBody = 12 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// decodePatch reads a partial update, keeping integers integral.
func decodePatch(w http.ResponseWriter, r *http.Request) (state.Patch, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}
	data, err := docstore.DecodeJSON(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}
	return state.Patch(data), true
}

func authFrom(r *http.Request) auth.AuthContext {
	ac, _ := auth.FromContext(r.Context())
	return ac
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, lists.ErrEmptyText),
		errors.Is(err, lists.ErrInvalidOrder),
		errors.Is(err, photo.ErrInvalidDataURL),
		errors.Is(err, photo.ErrTooLarge),
		errors.Is(err, backup.ErrNoPassphrase),
		errors.Is(err, backup.ErrInvalidArchive),
		errors.Is(err, backup.ErrWrongPassphrase):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrIncorrectPIN):
		return http.StatusUnauthorized
	case errors.Is(err, state.ErrForbidden), errors.Is(err, push.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, state.ErrNotFound),
		errors.Is(err, session.ErrProfileNotFound),
		errors.Is(err, lists.ErrItemNotFound),
		errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, state.ErrLastAdmin), errors.Is(err, state.ErrInsufficientPoints):
		return http.StatusConflict
	case errors.Is(err, backup.ErrDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server errors are logged and
// reported as "failed to <op>: <cause>".
func fail(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("failed to "+op, "error", err)
		writeError(w, status, "failed to "+op+": "+err.Error())
		return
	}
	logger.Debug("request rejected", "op", op, "status", status, "error", err)
	writeError(w, status, err.Error())
}

// emptyIfNil keeps list responses as JSON arrays.
func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
