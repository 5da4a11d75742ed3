// Package tasks owns the task lifecycle: creation, helper requests,
// approval exclusivity, dual-confirmation completion with credit
// settlement, expiry and repost.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campusrun/backend/internal/apperr"
	"github.com/campusrun/backend/internal/database"
	"github.com/campusrun/backend/internal/models"
	"github.com/campusrun/backend/internal/notify"
)

// duplicateWindow is the trailing window for the same-title posting throttle.
const duplicateWindow = 5 * time.Minute

// TaskStore is the task repository interface the service needs.
type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error)
	CountRecentByTitle(ctx context.Context, posterID uuid.UUID, title string, since time.Time) (int, error)
	MarkPendingApproval(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
	Accept(ctx context.Context, tx pgx.Tx, taskID, helperID uuid.UUID) (bool, error)
	Reopen(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) error
	SaveConfirmation(ctx context.Context, tx pgx.Tx, t *models.Task) (bool, error)
	MarkPaymentConfirmed(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id, posterID uuid.UUID) (bool, error)
	ExpireOverdue(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	ListOpen(ctx context.Context) ([]*models.Task, error)
	ListByPoster(ctx context.Context, posterID uuid.UUID) ([]*models.Task, error)
	ListByHelper(ctx context.Context, helperID uuid.UUID) ([]*models.Task, error)
}

// RequestStore is the helper-request repository interface.
type RequestStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, tr *models.TaskRequest) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.TaskRequest, error)
	Approve(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
	Reject(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
	RejectOtherPending(ctx context.Context, tx pgx.Tx, taskID, exceptID uuid.UUID) ([]uuid.UUID, error)
	CountPending(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (int, error)
	ListPendingForPoster(ctx context.Context, posterID uuid.UUID) ([]*models.TaskRequest, error)
}

// Settler performs the credit transfer when a task completes.
type Settler interface {
	SettleTx(ctx context.Context, tx pgx.Tx, task *models.Task) error
}

type Service struct {
	db       database.TxBeginner
	tasks    TaskStore
	requests RequestStore
	settler  Settler
	enqueue  notify.EnqueueTxFunc
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(db database.TxBeginner, tasks TaskStore, requests RequestStore, settler Settler, enqueue notify.EnqueueTxFunc, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       db,
		tasks:    tasks,
		requests: requests,
		settler:  settler,
		enqueue:  enqueue,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateInput carries the fields a poster supplies for a new task.
type CreateInput struct {
	Title       string
	Description string
	Reward      int
	RewardType  string
	Urgency     string
	DueDate     time.Time
}

// Create validates the input and inserts an open task. The duplicate
// throttle (same poster, identical title, trailing 5 minutes) is
// best-effort: a failing throttle read logs a warning and creation
// proceeds.
func (s *Service) Create(ctx context.Context, posterID uuid.UUID, in CreateInput) (*models.Task, error) {
	if in.Title == "" || in.Description == "" {
		return nil, apperr.Validation("title and description are required")
	}
	if in.Reward <= 0 {
		return nil, apperr.Validation("reward must be greater than 0")
	}
	if in.RewardType != models.RewardCredits && in.RewardType != models.RewardCash {
		return nil, apperr.Validation("reward_type must be credits or cash")
	}
	if in.Urgency == "" {
		in.Urgency = models.UrgencyNormal
	}
	if in.Urgency != models.UrgencyNormal && in.Urgency != models.UrgencyUrgent && in.Urgency != models.UrgencyVeryUrgent {
		return nil, apperr.Validation("invalid urgency")
	}
	if !in.DueDate.After(s.now()) {
		return nil, apperr.Validation("due date must be in the future")
	}

	count, err := s.tasks.CountRecentByTitle(ctx, posterID, in.Title, s.now().Add(-duplicateWindow))
	if err != nil {
		s.logger.Warn("duplicate-title check failed, continuing", "poster_id", posterID, "error", err)
	} else if count > 0 {
		return nil, apperr.Conflict("you recently posted a task with the same title")
	}

	task := &models.Task{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: in.Description,
		Reward:      in.Reward,
		RewardType:  in.RewardType,
		Urgency:     in.Urgency,
		Status:      models.TaskStatusOpen,
		PostedBy:    posterID,
		DueDate:     in.DueDate,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

// RequestHelp files a helper's bid on a browsable task. The partial
// unique index rejects a second pending bid from the same helper; the
// open -> pending_approval move is status-guarded so it never clobbers
// a concurrent transition.
func (s *Service) RequestHelp(ctx context.Context, actorID, taskID uuid.UUID) (*models.TaskRequest, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.PostedBy == actorID {
		return nil, apperr.Unauthorized("you cannot request your own task")
	}
	if task.Status != models.TaskStatusOpen && task.Status != models.TaskStatusPendingApproval {
		return nil, apperr.InvalidState("this task is no longer available")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin request tx: %w", err)
	}
	defer tx.Rollback(ctx)

	req := &models.TaskRequest{
		ID:       uuid.New(),
		TaskID:   taskID,
		HelperID: actorID,
		Status:   models.RequestStatusPending,
	}
	if err := s.requests.CreateTx(ctx, tx, req); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.Conflict("you already have a pending request for this task")
		}
		return nil, fmt.Errorf("insert request: %w", err)
	}
	if _, err := s.tasks.MarkPendingApproval(ctx, tx, taskID); err != nil {
		return nil, fmt.Errorf("mark pending_approval: %w", err)
	}
	if err := s.enqueue(ctx, tx, notify.EventArgs{
		UserID:        task.PostedBy,
		Type:          models.NotifyTaskRequest,
		Message:       fmt.Sprintf("Someone requested to help with your task: %s", task.Title),
		RelatedTaskID: &taskID,
		RelatedUserID: &actorID,
	}); err != nil {
		return nil, fmt.Errorf("enqueue notification: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit request tx: %w", err)
	}
	return req, nil
}

// Approve picks one pending request as the winner. Approving the
// request, rejecting every other pending request, and assigning the
// helper happen as one atomic unit; the status-guarded task update
// decides the approve race and the loser gets a conflict.
func (s *Service) Approve(ctx context.Context, actorID, requestID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin approve tx: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := s.requests.GetForUpdate(ctx, tx, requestID)
	if err != nil {
		return notFoundIf(err, "request %s", requestID)
	}
	task, err := s.tasks.GetForUpdate(ctx, tx, req.TaskID)
	if err != nil {
		return notFoundIf(err, "task %s", req.TaskID)
	}
	if task.PostedBy != actorID {
		return apperr.Unauthorized("only the task poster can approve requests")
	}
	if req.Status != models.RequestStatusPending {
		return apperr.InvalidState("request is not pending")
	}

	if ok, err := s.requests.Approve(ctx, tx, requestID); err != nil {
		return fmt.Errorf("approve request: %w", err)
	} else if !ok {
		return apperr.Conflict("request was decided concurrently")
	}
	losers, err := s.requests.RejectOtherPending(ctx, tx, req.TaskID, requestID)
	if err != nil {
		return fmt.Errorf("reject other requests: %w", err)
	}
	if ok, err := s.tasks.Accept(ctx, tx, req.TaskID, req.HelperID); err != nil {
		return fmt.Errorf("accept task: %w", err)
	} else if !ok {
		return apperr.Conflict("task is no longer open for approval")
	}

	if err := s.enqueue(ctx, tx, notify.EventArgs{
		UserID:        req.HelperID,
		Type:          models.NotifyRequestApproved,
		Message:       fmt.Sprintf("Your request was approved for task: %s", task.Title),
		RelatedTaskID: &req.TaskID,
		RelatedUserID: &actorID,
	}); err != nil {
		return fmt.Errorf("enqueue approval notification: %w", err)
	}
	for _, helperID := range losers {
		if err := s.enqueue(ctx, tx, notify.EventArgs{
			UserID:        helperID,
			Type:          models.NotifyRequestRejected,
			Message:       fmt.Sprintf("Your request was not selected for task: %s", task.Title),
			RelatedTaskID: &req.TaskID,
		}); err != nil {
			return fmt.Errorf("enqueue rejection notification: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit approve tx: %w", err)
	}
	return nil
}

// Reject declines one pending request. When no pending requests remain
// the task reverts to open so it is browsable again.
func (s *Service) Reject(ctx context.Context, actorID, requestID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reject tx: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := s.requests.GetForUpdate(ctx, tx, requestID)
	if err != nil {
		return notFoundIf(err, "request %s", requestID)
	}
	task, err := s.tasks.GetForUpdate(ctx, tx, req.TaskID)
	if err != nil {
		return notFoundIf(err, "task %s", req.TaskID)
	}
	if task.PostedBy != actorID {
		return apperr.Unauthorized("only the task poster can reject requests")
	}
	if req.Status != models.RequestStatusPending {
		return apperr.InvalidState("request is not pending")
	}

	if ok, err := s.requests.Reject(ctx, tx, requestID); err != nil {
		return fmt.Errorf("reject request: %w", err)
	} else if !ok {
		return apperr.Conflict("request was decided concurrently")
	}
	remaining, err := s.requests.CountPending(ctx, tx, req.TaskID)
	if err != nil {
		return fmt.Errorf("count pending: %w", err)
	}
	if remaining == 0 {
		if err := s.tasks.Reopen(ctx, tx, req.TaskID); err != nil {
			return fmt.Errorf("reopen task: %w", err)
		}
	}
	if err := s.enqueue(ctx, tx, notify.EventArgs{
		UserID:        req.HelperID,
		Type:          models.NotifyRequestRejected,
		Message:       fmt.Sprintf("Your request was rejected for task: %s", task.Title),
		RelatedTaskID: &req.TaskID,
	}); err != nil {
		return fmt.Errorf("enqueue rejection notification: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reject tx: %w", err)
	}
	return nil
}

// ConfirmCompletion records one party's completion confirmation. The
// task row is locked for the whole read-modify-write, so simultaneous
// confirmations serialize and the settlement runs exactly once, inside
// the transaction that wins the completed transition. A repeat confirm
// by the same actor is refused and changes nothing.
func (s *Service) ConfirmCompletion(ctx context.Context, actorID, taskID uuid.UUID) (completed bool, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback(ctx)

	task, err := s.tasks.GetForUpdate(ctx, tx, taskID)
	if err != nil {
		return false, notFoundIf(err, "task %s", taskID)
	}
	if !task.IsParty(actorID) {
		return false, apperr.Unauthorized("you are not a party to this task")
	}
	if task.Status != models.TaskStatusAccepted && task.Status != models.TaskStatusAwaitingConfirmation {
		return false, apperr.InvalidState("task must be accepted before confirmation")
	}

	isPoster := task.PostedBy == actorID
	if (isPoster && task.PosterConfirmed) || (!isPoster && task.HelperConfirmed) {
		return false, apperr.Conflict("completion already confirmed")
	}
	if isPoster {
		task.PosterConfirmed = true
	} else {
		task.HelperConfirmed = true
	}

	if task.PosterConfirmed && task.HelperConfirmed {
		now := s.now()
		task.Status = models.TaskStatusCompleted
		task.CompletedAt = &now
		completed = true
	} else {
		task.Status = models.TaskStatusAwaitingConfirmation
	}

	if ok, err := s.tasks.SaveConfirmation(ctx, tx, task); err != nil {
		return false, fmt.Errorf("save confirmation: %w", err)
	} else if !ok {
		return false, apperr.Conflict("task state changed concurrently")
	}

	if completed {
		if task.RewardType == models.RewardCredits {
			if err := s.settler.SettleTx(ctx, tx, task); err != nil {
				return false, fmt.Errorf("settle: %w", err)
			}
		}
		for _, userID := range []uuid.UUID{task.PostedBy, *task.AcceptedBy} {
			if err := s.enqueue(ctx, tx, notify.EventArgs{
				UserID:        userID,
				Type:          models.NotifyTaskCompleted,
				Message:       fmt.Sprintf("Task completed: %s", task.Title),
				RelatedTaskID: &task.ID,
			}); err != nil {
				return false, fmt.Errorf("enqueue completion notification: %w", err)
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit confirm tx: %w", err)
	}
	return completed, nil
}

// MarkPaymentComplete records the out-of-band cash handover on a
// completed cash task. Bookkeeping only; the ledger is never involved.
func (s *Service) MarkPaymentComplete(ctx context.Context, actorID, taskID uuid.UUID) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !task.IsParty(actorID) {
		return apperr.Unauthorized("you are not a party to this task")
	}
	if task.Status != models.TaskStatusCompleted {
		return apperr.InvalidState("task must be completed first")
	}
	if task.RewardType != models.RewardCash {
		return apperr.InvalidState("this action is only for cash rewards")
	}
	if ok, err := s.tasks.MarkPaymentConfirmed(ctx, taskID); err != nil {
		return fmt.Errorf("mark payment confirmed: %w", err)
	} else if !ok {
		return apperr.Conflict("task state changed concurrently")
	}
	return nil
}

// Delete removes the poster's task while it is still undecided.
// Accepted or completed tasks carry financial and rating history and
// must not be destroyed.
func (s *Service) Delete(ctx context.Context, actorID, taskID uuid.UUID) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.PostedBy != actorID {
		return apperr.Unauthorized("you can only delete your own tasks")
	}
	if task.Status != models.TaskStatusOpen && task.Status != models.TaskStatusPendingApproval {
		return apperr.InvalidState("cannot delete a task that is %s", task.Status)
	}
	if ok, err := s.tasks.Delete(ctx, taskID, actorID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	} else if !ok {
		return apperr.Conflict("task state changed concurrently")
	}
	return nil
}

// Repost clones an expired task into a fresh open one with a new due
// date. The expired original is left untouched.
func (s *Service) Repost(ctx context.Context, actorID, taskID uuid.UUID, newDueDate time.Time) (*models.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.PostedBy != actorID {
		return nil, apperr.Unauthorized("you can only repost your own tasks")
	}
	if task.Status != models.TaskStatusExpired {
		return nil, apperr.InvalidState("only expired tasks can be reposted")
	}
	if !newDueDate.After(s.now()) {
		return nil, apperr.Validation("due date must be in the future")
	}

	clone := &models.Task{
		ID:          uuid.New(),
		Title:       task.Title,
		Description: task.Description,
		Reward:      task.Reward,
		RewardType:  task.RewardType,
		Urgency:     task.Urgency,
		Status:      models.TaskStatusOpen,
		PostedBy:    actorID,
		DueDate:     newDueDate,
	}
	if err := s.tasks.Create(ctx, clone); err != nil {
		return nil, fmt.Errorf("insert reposted task: %w", err)
	}
	return clone, nil
}

// ExpireOverdue runs the idempotent expiry sweep.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.tasks.ExpireOverdue(ctx)
	if err != nil {
		return 0, fmt.Errorf("expire overdue: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired overdue tasks", "count", n)
	}
	return n, nil
}

// Browse lists actionable tasks, sweeping first so stale tasks never
// surface.
func (s *Service) Browse(ctx context.Context) ([]*models.Task, error) {
	if _, err := s.ExpireOverdue(ctx); err != nil {
		s.logger.Warn("expiry sweep before browse failed", "error", err)
	}
	return s.tasks.ListOpen(ctx)
}

// Mine returns the tasks posted by and helped on by the user, sweeping
// first.
func (s *Service) Mine(ctx context.Context, userID uuid.UUID) (posted, helping []*models.Task, err error) {
	if _, err := s.ExpireOverdue(ctx); err != nil {
		s.logger.Warn("expiry sweep before my-tasks failed", "error", err)
	}
	posted, err = s.tasks.ListByPoster(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	helping, err = s.tasks.ListByHelper(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return posted, helping, nil
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	return s.getTask(ctx, taskID)
}

// PendingForPoster surfaces every pending request across the poster's
// tasks.
func (s *Service) PendingForPoster(ctx context.Context, posterID uuid.UUID) ([]*models.TaskRequest, error) {
	return s.requests.ListPendingForPoster(ctx, posterID)
}

// DeleteAll wipes every task. Admin panel only.
func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	return s.tasks.DeleteAll(ctx)
}

func (s *Service) getTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, notFoundIf(err, "task %s", taskID)
	}
	return task, nil
}

func notFoundIf(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(format, args...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
