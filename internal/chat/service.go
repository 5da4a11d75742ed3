// Package chat is the per-task messaging surface. CRUD only; the core
// triggers a new_message notification and owns no delivery mechanics.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusrun/backend/internal/apperr"
	"github.com/campusrun/backend/internal/database"
	"github.com/campusrun/backend/internal/models"
	"github.com/campusrun/backend/internal/notify"
)

// MessageStore is the repository interface the service needs.
type MessageStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, m *models.Message) error
	ListForTask(ctx context.Context, taskID uuid.UUID) ([]*models.Message, error)
	HasRequestFrom(ctx context.Context, taskID, helperID uuid.UUID) (bool, error)
}

// TaskReader resolves the task a conversation belongs to.
type TaskReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
}

type Service struct {
	db      database.TxBeginner
	store   MessageStore
	tasks   TaskReader
	enqueue notify.EnqueueTxFunc
}

func NewService(db database.TxBeginner, store MessageStore, tasks TaskReader, enqueue notify.EnqueueTxFunc) *Service {
	return &Service{db: db, store: store, tasks: tasks, enqueue: enqueue}
}

// Send posts a message on the task's conversation. The poster and the
// assigned helper can always message each other; a candidate helper
// with a request on the task can message the poster.
func (s *Service) Send(ctx context.Context, senderID, taskID uuid.UUID, content string) (*models.Message, error) {
	if content == "" {
		return nil, apperr.Validation("message content is required")
	}
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("task %s", taskID)
		}
		return nil, fmt.Errorf("load task: %w", err)
	}

	receiverID, err := s.resolveReceiver(ctx, task, senderID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin message tx: %w", err)
	}
	defer tx.Rollback(ctx)

	msg := &models.Message{
		ID:         uuid.New(),
		TaskID:     &taskID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := s.store.CreateTx(ctx, tx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if err := s.enqueue(ctx, tx, notify.EventArgs{
		UserID:        receiverID,
		Type:          models.NotifyNewMessage,
		Message:       fmt.Sprintf("New message about task: %s", task.Title),
		RelatedTaskID: &taskID,
		RelatedUserID: &senderID,
	}); err != nil {
		return nil, fmt.Errorf("enqueue message notification: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit message tx: %w", err)
	}
	return msg, nil
}

// ListForTask returns the conversation, parties and candidates only.
func (s *Service) ListForTask(ctx context.Context, userID, taskID uuid.UUID) ([]*models.Message, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("task %s", taskID)
		}
		return nil, fmt.Errorf("load task: %w", err)
	}
	if !task.IsParty(userID) {
		hasRequest, err := s.store.HasRequestFrom(ctx, taskID, userID)
		if err != nil {
			return nil, fmt.Errorf("check request: %w", err)
		}
		if !hasRequest {
			return nil, apperr.Unauthorized("you are not part of this conversation")
		}
	}
	return s.store.ListForTask(ctx, taskID)
}

func (s *Service) resolveReceiver(ctx context.Context, task *models.Task, senderID uuid.UUID) (uuid.UUID, error) {
	if senderID == task.PostedBy {
		if task.AcceptedBy == nil {
			return uuid.Nil, apperr.InvalidState("no helper assigned to message yet")
		}
		return *task.AcceptedBy, nil
	}
	if task.AcceptedBy != nil && *task.AcceptedBy == senderID {
		return task.PostedBy, nil
	}
	hasRequest, err := s.store.HasRequestFrom(ctx, task.ID, senderID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("check request: %w", err)
	}
	if !hasRequest {
		return uuid.Nil, apperr.Unauthorized("you are not part of this conversation")
	}
	return task.PostedBy, nil
}
