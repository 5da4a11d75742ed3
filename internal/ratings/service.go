// Package ratings stores per-task mutual ratings with the double-blind
// reveal rule: a rating stays hidden until both parties have rated.
package ratings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campusrun/backend/internal/apperr"
	"github.com/campusrun/backend/internal/database"
	"github.com/campusrun/backend/internal/models"
	"github.com/campusrun/backend/internal/notify"
)

// profileRatingsCap bounds the profile-page rating list.
const profileRatingsCap = 10

// RatingStore is the repository interface the service needs.
type RatingStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, rt *models.Rating) error
	CountForTaskTx(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (int, error)
	RevealForTaskTx(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) error
	VisibleForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Rating, error)
	AverageForUser(ctx context.Context, userID uuid.UUID) (float64, int, error)
}

// TaskReader resolves and locks the task a rating refers to.
type TaskReader interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error)
}

type Service struct {
	db      database.TxBeginner
	store   RatingStore
	tasks   TaskReader
	enqueue notify.EnqueueTxFunc
}

func NewService(db database.TxBeginner, store RatingStore, tasks TaskReader, enqueue notify.EnqueueTxFunc) *Service {
	return &Service{db: db, store: store, tasks: tasks, enqueue: enqueue}
}

// Submit records the rater's score for the counterparty of a completed
// task. The insert and the reveal check run in one transaction: when
// the second rating lands, both rows flip visible together.
func (s *Service) Submit(ctx context.Context, raterID, taskID, ratedUserID uuid.UUID, score int, comment string) (*models.Rating, error) {
	if score < 1 || score > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin rating tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// The task row lock serializes concurrent submitters. The second one
	// blocks here until the first commits, so its count sees both rows
	// and the reveal fires.
	task, err := s.tasks.GetForUpdate(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("task %s", taskID)
		}
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task.Status != models.TaskStatusCompleted {
		return nil, apperr.InvalidState("can only rate completed tasks")
	}
	if !task.IsParty(raterID) {
		return nil, apperr.Unauthorized("you are not a party to this task")
	}
	if ratedUserID != task.Counterparty(raterID) {
		return nil, apperr.Validation("rated user must be the other party of the task")
	}

	rating := &models.Rating{
		ID:        uuid.New(),
		TaskID:    taskID,
		RatedBy:   raterID,
		RatedUser: ratedUserID,
		Rating:    score,
		IsHidden:  true,
	}
	if comment != "" {
		rating.Comment = &comment
	}
	if err := s.store.CreateTx(ctx, tx, rating); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.Conflict("you have already rated this task")
		}
		return nil, fmt.Errorf("insert rating: %w", err)
	}

	count, err := s.store.CountForTaskTx(ctx, tx, taskID)
	if err != nil {
		return nil, fmt.Errorf("count ratings: %w", err)
	}
	if count >= 2 {
		if err := s.store.RevealForTaskTx(ctx, tx, taskID); err != nil {
			return nil, fmt.Errorf("reveal ratings: %w", err)
		}
		rating.IsHidden = false
	}

	if err := s.enqueue(ctx, tx, notify.EventArgs{
		UserID:        ratedUserID,
		Type:          models.NotifyRatingReceived,
		Message:       fmt.Sprintf("You received a rating for task: %s", task.Title),
		RelatedTaskID: &taskID,
		RelatedUserID: &raterID,
	}); err != nil {
		return nil, fmt.Errorf("enqueue rating notification: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit rating tx: %w", err)
	}
	return rating, nil
}

// ForProfile returns the visible, commented ratings shown on a user's
// profile plus their visible average.
func (s *Service) ForProfile(ctx context.Context, userID uuid.UUID) (list []*models.Rating, avg float64, count int, err error) {
	list, err = s.store.VisibleForUser(ctx, userID, profileRatingsCap)
	if err != nil {
		return nil, 0, 0, err
	}
	avg, count, err = s.store.AverageForUser(ctx, userID)
	if err != nil {
		return nil, 0, 0, err
	}
	return list, avg, count, nil
}
