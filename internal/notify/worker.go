package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/campusrun/backend/internal/models"
)

// NotificationStore is the contract the worker needs to persist rows.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// EventWorker turns queued events into notification rows.
type EventWorker struct {
	river.WorkerDefaults[EventArgs]
	store  NotificationStore
	logger *slog.Logger
}

func NewEventWorker(store NotificationStore, logger *slog.Logger) *EventWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventWorker{store: store, logger: logger}
}

func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventArgs]) error {
	args := job.Args
	n := &models.Notification{
		ID:            uuid.New(),
		UserID:        args.UserID,
		Type:          args.Type,
		Message:       args.Message,
		RelatedTaskID: args.RelatedTaskID,
		RelatedUserID: args.RelatedUserID,
	}
	if err := w.store.Create(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	w.logger.Debug("notification delivered", "user_id", args.UserID, "type", args.Type)
	return nil
}
