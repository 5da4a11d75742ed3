package models

import (
	"time"

	"github.com/google/uuid"
)

// Task lifecycle statuses. A task moves open -> pending_approval ->
// accepted -> awaiting_confirmation -> completed; open/pending_approval
// tasks whose due date passes become expired instead.
const (
	TaskStatusOpen                 = "open"
	TaskStatusPendingApproval      = "pending_approval"
	TaskStatusAccepted             = "accepted"
	TaskStatusAwaitingConfirmation = "awaiting_confirmation"
	TaskStatusCompleted            = "completed"
	TaskStatusExpired              = "expired"
)

// Reward kinds. Cash rewards settle outside the system; only credits
// rewards ever touch the ledger.
const (
	RewardCredits = "credits"
	RewardCash    = "cash"
)

// Urgency levels.
const (
	UrgencyNormal     = "normal"
	UrgencyUrgent     = "urgent"
	UrgencyVeryUrgent = "very_urgent"
)

type Task struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Reward           int        `json:"reward"`
	RewardType       string     `json:"reward_type"`
	Urgency          string     `json:"urgency"`
	Status           string     `json:"status"`
	PostedBy         uuid.UUID  `json:"posted_by"`
	AcceptedBy       *uuid.UUID `json:"accepted_by,omitempty"`
	PosterConfirmed  bool       `json:"poster_confirmed"`
	HelperConfirmed  bool       `json:"helper_confirmed"`
	PaymentConfirmed bool       `json:"payment_confirmed"`
	DueDate          time.Time  `json:"due_date"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsParty reports whether userID is the poster or the assigned helper.
func (t *Task) IsParty(userID uuid.UUID) bool {
	if t.PostedBy == userID {
		return true
	}
	return t.AcceptedBy != nil && *t.AcceptedBy == userID
}

// Counterparty returns the other party of the task relative to userID.
// Only meaningful once a helper is assigned.
func (t *Task) Counterparty(userID uuid.UUID) uuid.UUID {
	if t.PostedBy == userID && t.AcceptedBy != nil {
		return *t.AcceptedBy
	}
	return t.PostedBy
}
