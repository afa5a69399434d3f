package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/familyhub/internal/auth"
	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/push"
)

type PushHandler struct {
	subs    *push.Subscriptions
	service *push.Service
	logger  *slog.Logger
}

func NewPushHandler(subs *push.Subscriptions, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{subs: subs, service: svc, logger: logger}
}

// subscribeRequest mirrors the browser's PushSubscription.toJSON().
type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	DeviceName string `json:"deviceName"`
}

// VAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.service.VAPIDPublicKey()})
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sub, err := h.subs.Save(r.Context(), model.PushSubscription{
		ProfileID:  authFrom(r).ProfileID,
		Endpoint:   req.Endpoint,
		P256dhKey:  req.Keys.P256dh,
		AuthKey:    req.Keys.Auth,
		DeviceName: req.DeviceName,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		fail(w, h.logger, "save subscription", err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/push/subscriptions/{id}
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	err := h.subs.Delete(r.Context(), r.PathValue("id"), authFrom(r).ProfileID, auth.IsAdmin(r.Context()))
	if err != nil {
		fail(w, h.logger, "delete subscription", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/push/subscriptions: the caller's devices.
func (h *PushHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subs.List(r.Context(), []string{authFrom(r).ProfileID})
	if err != nil {
		fail(w, h.logger, "list subscriptions", err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(subs))
}
