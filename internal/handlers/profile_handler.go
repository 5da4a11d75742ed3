package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusrun/backend/internal/models"
)

// ProfileStore resolves public profiles.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// ProfileRatings is the ratings subset for the public profile page.
type ProfileRatings interface {
	ForProfile(ctx context.Context, userID uuid.UUID) (list []*models.Rating, avg float64, count int, err error)
}

// ProfileHandler serves GET /api/v1/profiles/{id}.
type ProfileHandler struct {
	Profiles ProfileStore
	Ratings  ProfileRatings
	Logger   *slog.Logger
}

type publicProfileResponse struct {
	ID            string           `json:"id"`
	FullName      string           `json:"full_name"`
	Bio           string           `json:"bio,omitempty"`
	MemberSince   string           `json:"member_since"`
	AverageRating float64          `json:"average_rating"`
	RatingCount   int              `json:"rating_count"`
	Ratings       []*models.Rating `json:"ratings"`
}

// Get returns the public view of a profile: name, bio and the ratings
// that have been revealed. Email and credits stay private.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid profile id"}`, http.StatusBadRequest)
		return
	}

	p, err := h.Profiles.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
			return
		}
		respondErr(w, h.Logger, err)
		return
	}

	list, avg, count, err := h.Ratings.ForProfile(r.Context(), userID)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, publicProfileResponse{
		ID:            p.ID.String(),
		FullName:      p.FullName,
		Bio:           p.Bio,
		MemberSince:   p.CreatedAt.Format("2006-01-02"),
		AverageRating: avg,
		RatingCount:   count,
		Ratings:       list,
	})
}
