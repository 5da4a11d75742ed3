package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/campusrun/backend/internal/models"
)

// RequestService is the subset of the task service covering help requests.
type RequestService interface {
	PendingForPoster(ctx context.Context, posterID uuid.UUID) ([]*models.TaskRequest, error)
	Approve(ctx context.Context, actorID, requestID uuid.UUID) error
	Reject(ctx context.Context, actorID, requestID uuid.UUID) error
}

// RequestHandler serves /api/v1/requests endpoints.
type RequestHandler struct {
	Requests RequestService
	Logger   *slog.Logger
}

// Pending handles GET /api/v1/requests/pending.
func (h *RequestHandler) Pending(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	list, err := h.Requests.PendingForPoster(r.Context(), p.ID)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Approve handles POST /api/v1/requests/{id}/approve.
func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	requestID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid request id"}`, http.StatusBadRequest)
		return
	}

	if err := h.Requests.Approve(r.Context(), p.ID, requestID); err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"request_id": requestID.String(), "status": models.RequestStatusApproved})
}

// Reject handles POST /api/v1/requests/{id}/reject.
func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	requestID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid request id"}`, http.StatusBadRequest)
		return
	}

	if err := h.Requests.Reject(r.Context(), p.ID, requestID); err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"request_id": requestID.String(), "status": models.RequestStatusRejected})
}
