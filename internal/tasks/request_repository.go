package tasks

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusrun/backend/internal/models"
)

const requestColumns = `id, task_id, helper_id, status, created_at, updated_at`

// RequestRepository stores helper bids. The partial unique index on
// (task_id, helper_id) WHERE status='pending' is what makes the
// duplicate-request race safe.
type RequestRepository struct {
	pool *pgxpool.Pool
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

func scanRequest(row pgx.Row) (*models.TaskRequest, error) {
	var tr models.TaskRequest
	err := row.Scan(&tr.ID, &tr.TaskID, &tr.HelperID, &tr.Status, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

// CreateTx inserts a pending request inside the given transaction. A
// unique violation surfaces as pgconn.PgError 23505 for the caller.
func (r *RequestRepository) CreateTx(ctx context.Context, tx pgx.Tx, tr *models.TaskRequest) error {
	return tx.QueryRow(ctx, `
		INSERT INTO task_requests (id, task_id, helper_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, tr.ID, tr.TaskID, tr.HelperID, tr.Status).Scan(&tr.CreatedAt, &tr.UpdatedAt)
}

// GetForUpdate locks the request row. Call within a transaction.
func (r *RequestRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.TaskRequest, error) {
	return scanRequest(tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM task_requests WHERE id = $1 FOR UPDATE`, id))
}

// Approve moves a pending request to approved. Zero rows affected
// means the request was no longer pending.
func (r *RequestRepository) Approve(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE task_requests SET status = 'approved', updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Reject moves a pending request to rejected.
func (r *RequestRepository) Reject(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE task_requests SET status = 'rejected', updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RejectOtherPending rejects every other pending request on the task
// and returns the helpers who lost out, so they can be notified.
func (r *RequestRepository) RejectOtherPending(ctx context.Context, tx pgx.Tx, taskID, exceptID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, `
		UPDATE task_requests SET status = 'rejected', updated_at = now()
		WHERE task_id = $1 AND status = 'pending' AND id <> $2
		RETURNING helper_id
	`, taskID, exceptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var helpers []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		helpers = append(helpers, id)
	}
	return helpers, rows.Err()
}

// CountPending counts the remaining pending requests for a task inside
// the caller's transaction.
func (r *RequestRepository) CountPending(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `
		SELECT count(*) FROM task_requests WHERE task_id = $1 AND status = 'pending'
	`, taskID).Scan(&n)
	return n, err
}

// ListPendingForPoster surfaces pending requests across a poster's
// tasks in one view. Only tasks that can still be assigned appear;
// requests stranded on expired or already-accepted tasks drop out.
func (r *RequestRepository) ListPendingForPoster(ctx context.Context, posterID uuid.UUID) ([]*models.TaskRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tr.id, tr.task_id, tr.helper_id, tr.status, tr.created_at, tr.updated_at
		FROM task_requests tr
		JOIN tasks t ON t.id = tr.task_id
		WHERE t.posted_by = $1 AND tr.status = 'pending'
		  AND t.status IN ('open', 'pending_approval')
		ORDER BY tr.created_at
	`, posterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.TaskRequest
	for rows.Next() {
		tr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, tr)
	}
	return list, rows.Err()
}
