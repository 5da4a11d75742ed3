package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusrun/backend/internal/models"
)

const taskColumns = `id, title, description, reward, reward_type, urgency, status, posted_by, accepted_by,
	poster_confirmed, helper_confirmed, payment_confirmed, due_date, completed_at, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Reward, &t.RewardType, &t.Urgency, &t.Status,
		&t.PostedBy, &t.AcceptedBy, &t.PosterConfirmed, &t.HelperConfirmed, &t.PaymentConfirmed,
		&t.DueDate, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) Create(ctx context.Context, t *models.Task) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, title, description, reward, reward_type, urgency, status, posted_by, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, t.ID, t.Title, t.Description, t.Reward, t.RewardType, t.Urgency, t.Status, t.PostedBy, t.DueDate).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

// GetForUpdate locks the task row, serializing concurrent confirmations
// and approvals on the same task. Call within a transaction.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
}

// CountRecentByTitle supports the duplicate-posting throttle.
func (r *Repository) CountRecentByTitle(ctx context.Context, posterID uuid.UUID, title string, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM tasks WHERE posted_by = $1 AND title = $2 AND created_at >= $3
	`, posterID, title, since).Scan(&n)
	return n, err
}

// MarkPendingApproval moves an open task to pending_approval. The
// status guard makes the update a no-op when another transition already
// won; callers treat zero rows as fine.
func (r *Repository) MarkPendingApproval(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE tasks SET status = 'pending_approval', updated_at = now()
		WHERE id = $1 AND status = 'open'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Accept assigns the helper and moves the task to accepted. The status
// guard is the compare-and-swap that decides the approve race: zero
// rows affected means another approval got there first.
func (r *Repository) Accept(ctx context.Context, tx pgx.Tx, taskID, helperID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE tasks SET status = 'accepted', accepted_by = $2, updated_at = now()
		WHERE id = $1 AND status IN ('open', 'pending_approval')
	`, taskID, helperID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Reopen reverts a pending_approval task with no remaining candidates
// back to open.
func (r *Repository) Reopen(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE tasks SET status = 'open', updated_at = now()
		WHERE id = $1 AND status = 'pending_approval'
	`, taskID)
	return err
}

// SaveConfirmation writes the confirmation flags, status and
// completed_at computed by the service. The status guard limits the
// write to rows still inside the confirmation window.
func (r *Repository) SaveConfirmation(ctx context.Context, tx pgx.Tx, t *models.Task) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE tasks SET poster_confirmed = $2, helper_confirmed = $3, status = $4, completed_at = $5, updated_at = now()
		WHERE id = $1 AND status IN ('accepted', 'awaiting_confirmation')
	`, t.ID, t.PosterConfirmed, t.HelperConfirmed, t.Status, t.CompletedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) MarkPaymentConfirmed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET payment_confirmed = TRUE, updated_at = now()
		WHERE id = $1 AND status = 'completed' AND reward_type = 'cash'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes the task only while it is still open or awaiting
// approval, guarding history with financial or rating consequences.
func (r *Repository) Delete(ctx context.Context, id, posterID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM tasks WHERE id = $1 AND posted_by = $2 AND status IN ('open', 'pending_approval')
	`, id, posterID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ExpireOverdue is the idempotent sweep: overdue browsable tasks become
// expired. Returns how many rows transitioned.
func (r *Repository) ExpireOverdue(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = 'expired', updated_at = now()
		WHERE status IN ('open', 'pending_approval') AND due_date < now()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) ListOpen(ctx context.Context) ([]*models.Task, error) {
	return r.list(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status IN ('open', 'pending_approval') AND due_date >= now()
		ORDER BY CASE urgency WHEN 'very_urgent' THEN 0 WHEN 'urgent' THEN 1 ELSE 2 END, due_date
	`)
}

func (r *Repository) ListByPoster(ctx context.Context, posterID uuid.UUID) ([]*models.Task, error) {
	return r.list(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE posted_by = $1 ORDER BY created_at DESC
	`, posterID)
}

func (r *Repository) ListByHelper(ctx context.Context, helperID uuid.UUID) ([]*models.Task, error) {
	return r.list(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE accepted_by = $1 ORDER BY created_at DESC
	`, helperID)
}

func (r *Repository) list(ctx context.Context, sql string, args ...any) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
