package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/campusrun/backend/internal/models"
)

// notificationPageSize caps the list view at the newest twenty rows.
const notificationPageSize = 20

// NotificationStore is the notification repository subset the handler uses.
type NotificationStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

// NotificationHandler serves /api/v1/notifications endpoints.
type NotificationHandler struct {
	Store  NotificationStore
	Logger *slog.Logger
}

// List handles GET /api/v1/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	list, err := h.Store.ListByUser(r.Context(), p.ID, notificationPageSize)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// MarkRead handles POST /api/v1/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid notification id"}`, http.StatusBadRequest)
		return
	}

	if err := h.Store.MarkRead(r.Context(), id, p.ID); err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /api/v1/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	if err := h.Store.MarkAllRead(r.Context(), p.ID); err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnreadCount handles GET /api/v1/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	n, err := h.Store.UnreadCount(r.Context(), p.ID)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": n})
}
