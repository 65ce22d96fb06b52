package handler

import (
	"log/slog"
	"net/http"

	"github.com/vidaplan/vidaplan/internal/ctxkeys"
	"github.com/vidaplan/vidaplan/internal/service"
)

type DashboardHandler struct {
	goalService *service.GoalService
}

func NewDashboardHandler(goalService *service.GoalService) *DashboardHandler {
	return &DashboardHandler{goalService: goalService}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	stats, err := h.goalService.Stats(user.ID)
	if err != nil {
		slog.Error("failed to compute goal stats", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
