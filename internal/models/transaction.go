package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types.
const (
	TransactionEarned          = "earned"
	TransactionSpent           = "spent"
	TransactionAdminAdjustment = "admin_adjustment"
)

// Transaction is an append-only ledger entry. A completed credits task
// produces exactly two rows of equal magnitude: a negative spent row on
// the poster and a positive earned row on the helper.
type Transaction struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Amount      int        `json:"amount"`
	Type        string     `json:"type"`
	TaskID      *uuid.UUID `json:"task_id,omitempty"`
	Description string     `json:"description"`
	FromUser    *uuid.UUID `json:"from_user,omitempty"`
	ToUser      *uuid.UUID `json:"to_user,omitempty"`
	TaskTitle   *string    `json:"task_title,omitempty"`
	RewardType  *string    `json:"reward_type,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
