package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/campusrun/backend/internal/models"
)

// ChatService is the subset of the chat service needed by the handler.
type ChatService interface {
	Send(ctx context.Context, senderID, taskID uuid.UUID, content string) (*models.Message, error)
	ListForTask(ctx context.Context, userID, taskID uuid.UUID) ([]*models.Message, error)
}

// ChatHandler serves per-task message threads.
type ChatHandler struct {
	Chat   ChatService
	Logger *slog.Logger
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// Send handles POST /api/v1/tasks/{id}/messages.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	msg, err := h.Chat.Send(r.Context(), p.ID, taskID, req.Content)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// List handles GET /api/v1/tasks/{id}/messages.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	msgs, err := h.Chat.ListForTask(r.Context(), p.ID, taskID)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
