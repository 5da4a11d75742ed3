package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types emitted by the core at lifecycle transitions.
const (
	NotifyTaskRequest     = "task_request"
	NotifyRequestApproved = "request_approved"
	NotifyRequestRejected = "request_rejected"
	NotifyTaskCompleted   = "task_completed"
	NotifyNewMessage      = "new_message"
	NotifyRatingReceived  = "rating_received"
)

type Notification struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Type          string     `json:"type"`
	Message       string     `json:"message"`
	RelatedTaskID *uuid.UUID `json:"related_task_id,omitempty"`
	RelatedUserID *uuid.UUID `json:"related_user_id,omitempty"`
	IsRead        bool       `json:"is_read"`
	CreatedAt     time.Time  `json:"created_at"`
}
