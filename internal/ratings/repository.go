package ratings

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusrun/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateTx inserts a hidden rating inside the given transaction. The
// unique (task_id, rated_by) constraint rejects double rating.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, rt *models.Rating) error {
	return tx.QueryRow(ctx, `
		INSERT INTO ratings (id, task_id, rated_by, rated_user, rating, comment, is_hidden)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, rt.ID, rt.TaskID, rt.RatedBy, rt.RatedUser, rt.Rating, rt.Comment, rt.IsHidden).Scan(&rt.CreatedAt)
}

// CountForTaskTx counts the task's ratings inside the caller's
// transaction, so the reveal decision and the insert it follows cannot
// interleave with a concurrent submit.
func (r *Repository) CountForTaskTx(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `SELECT count(*) FROM ratings WHERE task_id = $1`, taskID).Scan(&n)
	return n, err
}

// RevealForTaskTx flips is_hidden off for both of the task's ratings in
// a single statement, so there is never a state where one is visible
// and the other is not.
func (r *Repository) RevealForTaskTx(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE ratings SET is_hidden = FALSE WHERE task_id = $1`, taskID)
	return err
}

// VisibleForUser returns revealed, commented ratings about the user,
// newest first.
func (r *Repository) VisibleForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Rating, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, rated_by, rated_user, rating, comment, is_hidden, created_at
		FROM ratings
		WHERE rated_user = $1 AND is_hidden = FALSE AND comment IS NOT NULL
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Rating
	for rows.Next() {
		var rt models.Rating
		if err := rows.Scan(&rt.ID, &rt.TaskID, &rt.RatedBy, &rt.RatedUser, &rt.Rating, &rt.Comment, &rt.IsHidden, &rt.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &rt)
	}
	return list, rows.Err()
}

// AverageForUser returns the mean visible score and the number of
// visible ratings for the user.
func (r *Repository) AverageForUser(ctx context.Context, userID uuid.UUID) (avg float64, count int, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(avg(rating), 0), count(*)
		FROM ratings WHERE rated_user = $1 AND is_hidden = FALSE
	`, userID).Scan(&avg, &count)
	return avg, count, err
}
