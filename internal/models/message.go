package models

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID         uuid.UUID  `json:"id"`
	TaskID     *uuid.UUID `json:"task_id,omitempty"`
	RequestID  *uuid.UUID `json:"request_id,omitempty"`
	SenderID   uuid.UUID  `json:"sender_id"`
	ReceiverID uuid.UUID  `json:"receiver_id"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
}
