package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/familyhub/internal/model"
	"github.com/dukerupert/familyhub/internal/state"
)

type RewardHandler struct {
	app    *state.App
	logger *slog.Logger
}

func NewRewardHandler(app *state.App, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{app: app, logger: logger}
}

// List handles GET /api/rewards.
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, emptyIfNil(h.app.Rewards()))
}

// Create handles POST /api/rewards.
func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rw model.Reward
	if !decodeJSON(w, r, &rw) {
		return
	}
	rw, err := h.app.AddReward(r.Context(), authFrom(r), rw)
	if err != nil {
		fail(w, h.logger, "add reward", err)
		return
	}
	writeJSON(w, http.StatusCreated, rw)
}

// Update handles PUT /api/rewards/{id}.
func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	rw, err := h.app.UpdateReward(r.Context(), authFrom(r), r.PathValue("id"), patch)
	if err != nil {
		fail(w, h.logger, "update reward", err)
		return
	}
	writeJSON(w, http.StatusOK, rw)
}

// Delete handles DELETE /api/rewards/{id}.
func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteReward(r.Context(), authFrom(r), r.PathValue("id")); err != nil {
		fail(w, h.logger, "delete reward", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Redeem handles POST /api/rewards/{id}/redeem. Too few points is a 409.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID, ok := targetUser(w, r)
	if !ok {
		return
	}
	red, err := h.app.RedeemReward(r.Context(), authFrom(r), userID, r.PathValue("id"))
	if err != nil {
		fail(w, h.logger, "redeem reward", err)
		return
	}
	writeJSON(w, http.StatusCreated, red)
}

// Leaderboard handles GET /api/leaderboard.
func (h *RewardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, emptyIfNil(h.app.Leaderboard()))
}

// Redemptions handles GET /api/profiles/{id}/redemptions.
func (h *RewardHandler) Redemptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, emptyIfNil(h.app.Redemptions(r.PathValue("id"))))
}
