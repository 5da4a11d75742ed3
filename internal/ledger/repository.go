package ledger

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

// LockProfile locks the profile row for update. Call within a transaction.
func (r *Repository) LockProfile(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	err := tx.QueryRow(ctx, `
		SELECT id, email, full_name, bio, password_hash, credits, role, created_at, updated_at
		FROM profiles WHERE id = $1 FOR UPDATE
	`, id).Scan(&p.ID, &p.Email, &p.FullName, &p.Bio, &p.PasswordHash, &p.Credits, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AddCredits applies a signed delta to the profile balance and returns
// the new balance. No floor check: admin adjustments may drive a
// balance negative. Call after LockProfile in the same transaction.
func (r *Repository) AddCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE profiles SET credits = credits + $1, updated_at = now()
		WHERE id = $2
		RETURNING credits
	`, delta, id).Scan(&newBalance)
	return newBalance, err
}

// CreateTransactionTx appends a ledger row inside the given transaction.
func (r *Repository) CreateTransactionTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, amount, type, task_id, description, from_user, to_user, task_title, reward_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, t.ID, t.UserID, t.Amount, t.Type, t.TaskID, t.Description, t.FromUser, t.ToUser, t.TaskTitle, t.RewardType).Scan(&t.CreatedAt)
}

func (r *Repository) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var credits int
	err := r.pool.QueryRow(ctx, `SELECT credits FROM profiles WHERE id = $1`, userID).Scan(&credits)
	return credits, err
}

func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount, type, task_id, description, from_user, to_user, task_title, reward_type, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.TaskID, &t.Description, &t.FromUser, &t.ToUser, &t.TaskTitle, &t.RewardType, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
