package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/campusrun/backend/internal/models"
	"github.com/campusrun/backend/internal/tasks"
)

// TaskService is the subset of the task service needed by the handler.
type TaskService interface {
	Create(ctx context.Context, posterID uuid.UUID, in tasks.CreateInput) (*models.Task, error)
	Browse(ctx context.Context) ([]*models.Task, error)
	Mine(ctx context.Context, userID uuid.UUID) (posted, helping []*models.Task, err error)
	Get(ctx context.Context, taskID uuid.UUID) (*models.Task, error)
	Delete(ctx context.Context, actorID, taskID uuid.UUID) error
	RequestHelp(ctx context.Context, actorID, taskID uuid.UUID) (*models.TaskRequest, error)
	ConfirmCompletion(ctx context.Context, actorID, taskID uuid.UUID) (bool, error)
	MarkPaymentComplete(ctx context.Context, actorID, taskID uuid.UUID) error
	Repost(ctx context.Context, actorID, taskID uuid.UUID, newDueDate time.Time) (*models.Task, error)
}

// TaskHandler serves /api/v1/tasks endpoints.
type TaskHandler struct {
	Tasks  TaskService
	Logger *slog.Logger
}

// --- POST /api/v1/tasks ---

type createTaskRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Reward      int       `json:"reward"`
	RewardType  string    `json:"reward_type"`
	Urgency     string    `json:"urgency"`
	DueDate     time.Time `json:"due_date"`
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	task, err := h.Tasks.Create(r.Context(), p.ID, tasks.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Reward:      req.Reward,
		RewardType:  req.RewardType,
		Urgency:     req.Urgency,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// Browse handles GET /api/v1/tasks. Only open, non-overdue tasks are
// returned; the helper's own view filters happen client side.
func (h *TaskHandler) Browse(w http.ResponseWriter, r *http.Request) {
	list, err := h.Tasks.Browse(r.Context())
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type mineResponse struct {
	Posted  []*models.Task `json:"posted"`
	Helping []*models.Task `json:"helping"`
}

// Mine handles GET /api/v1/tasks/mine.
func (h *TaskHandler) Mine(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}

	posted, helping, err := h.Tasks.Mine(r.Context(), p.ID)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mineResponse{Posted: posted, Helping: helping})
}

// Get handles GET /api/v1/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	task, err := h.Tasks.Get(r.Context(), taskID)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /api/v1/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	if err := h.Tasks.Delete(r.Context(), p.ID, taskID); err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestHelp handles POST /api/v1/tasks/{id}/request.
func (h *TaskHandler) RequestHelp(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	req, err := h.Tasks.RequestHelp(r.Context(), p.ID, taskID)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

type confirmResponse struct {
	TaskID    string `json:"task_id"`
	Completed bool   `json:"completed"`
}

// Confirm handles POST /api/v1/tasks/{id}/confirm. The second party's
// confirmation completes the task and, for credit tasks, settles payment.
func (h *TaskHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	completed, err := h.Tasks.ConfirmCompletion(r.Context(), p.ID, taskID)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmResponse{TaskID: taskID.String(), Completed: completed})
}

// Payment handles POST /api/v1/tasks/{id}/payment. Cash tasks only.
func (h *TaskHandler) Payment(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	if err := h.Tasks.MarkPaymentComplete(r.Context(), p.ID, taskID); err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID.String(), "payment": "confirmed"})
}

type repostRequest struct {
	DueDate time.Time `json:"due_date"`
}

// Repost handles POST /api/v1/tasks/{id}/repost. Clones an expired task
// into a fresh open one with a new due date.
func (h *TaskHandler) Repost(w http.ResponseWriter, r *http.Request) {
	p, ok := currentProfile(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(r, "id")
	if !ok {
		http.Error(w, `{"error":"invalid task id"}`, http.StatusBadRequest)
		return
	}

	var req repostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	task, err := h.Tasks.Repost(r.Context(), p.ID, taskID, req.DueDate)
	if err != nil {
		respondErr(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}
