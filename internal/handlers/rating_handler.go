package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/campusrun/backend/internal/models"
)

// RatingService is the subset of the ratings service needed by the handler.
type RatingService interface {
	Submit(ctx context.Context, raterID, taskID, ratedUserID uuid.UUID, score int, comment string) (*models.Rating, error)
}

// RatingHandler serves rating submission.
type RatingHandler struct {
	Ratings RatingService
	Logger  *slog.Logger
}

type submitRatingRequest struct {
	RatedUser string `json:"rated_user"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// Submit handles POST /api/v1/tasks/{id}/ratings.
func (h *RatingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	var req submitRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	ratedUser, err := uuid.Parse(req.RatedUser)
	if err != nil {
		http.Error(w, `{"error":"invalid rated_user"}`, http.StatusBadRequest)
		return
	}

	rating, err := h.Ratings.Submit(r.Context(), p.ID, taskID, ratedUser, req.Rating, req.Comment)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rating)
}
