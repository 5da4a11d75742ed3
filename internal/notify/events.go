// Package notify emits user notifications for lifecycle events. The
// core enqueues events transactionally through river so a rolled-back
// transition never produces a stray notification; a river worker
// materializes the rows.
package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EventArgs is the river job payload for one notification event.
type EventArgs struct {
	UserID        uuid.UUID  `json:"user_id"`
	Type          string     `json:"type"`
	Message       string     `json:"message"`
	RelatedTaskID *uuid.UUID `json:"related_task_id,omitempty"`
	RelatedUserID *uuid.UUID `json:"related_user_id,omitempty"`
}

func (EventArgs) Kind() string { return "notification_event" }

// EnqueueTxFunc enqueues a notification event within the given
// transaction. Provided by main as a closure over river.Client.InsertTx.
type EnqueueTxFunc func(ctx context.Context, tx pgx.Tx, args EventArgs) error
