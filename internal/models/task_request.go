package models

import (
	"time"

	"github.com/google/uuid"
)

// Task request statuses. At most one request per task ever reaches
// approved, and approval is the only path to Task.AcceptedBy.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

type TaskRequest struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	HelperID  uuid.UUID `json:"helper_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
