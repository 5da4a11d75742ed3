package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating is one party's 1-5 score for the other party of a completed
// task. Ratings insert hidden and only become visible when both parties
// have rated (mutual reveal), so a unilateral rating never leaks.
type Rating struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	RatedBy   uuid.UUID `json:"rated_by"`
	RatedUser uuid.UUID `json:"rated_user"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	IsHidden  bool      `json:"is_hidden"`
	CreatedAt time.Time `json:"created_at"`
}
