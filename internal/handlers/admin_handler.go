package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/campusrun/backend/internal/models"
)

// CreditAdjuster applies signed credit deltas outside normal settlement.
type CreditAdjuster interface {
	AdjustCredits(ctx context.Context, userID uuid.UUID, delta int, reason string) (int, error)
}

// TaskPurger wipes the task board.
type TaskPurger interface {
	DeleteAll(ctx context.Context) (int64, error)
}

// UserLister enumerates all profiles for the admin panel.
type UserLister interface {
	List(ctx context.Context) ([]*models.Profile, error)
}

// AdminHandler serves /api/v1/admin endpoints. Routes are gated by the
// RequireAdmin middleware.
type AdminHandler struct {
	Ledger CreditAdjuster
	Tasks  TaskPurger
	Users  UserLister
	Logger *slog.Logger
}

type adjustCreditsRequest struct {
	UserID string `json:"user_id"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// AdjustCredits handles POST /api/v1/admin/credits.
func (h *AdminHandler) AdjustCredits(w http.ResponseWriter, r *http.Request) {
	var req adjustCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		http.Error(w, `{"error":"invalid user_id"}`, http.StatusBadRequest)
		return
	}
	if req.Delta == 0 {
		http.Error(w, `{"error":"delta must be non-zero"}`, http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		req.Reason = "Admin credit adjustment"
	}

	balance, err := h.Ledger.AdjustCredits(r.Context(), userID, req.Delta, req.Reason)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"credits": balance})
}

// DeleteAllTasks handles DELETE /api/v1/admin/tasks.
func (h *AdminHandler) DeleteAllTasks(w http.ResponseWriter, r *http.Request) {
	n, err := h.Tasks.DeleteAll(r.Context())
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	h.Logger.Info("admin wiped task board", "deleted", n)
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// ListUsers handles GET /api/v1/admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
