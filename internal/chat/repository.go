package chat

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

// CreateTx inserts a message inside the given transaction so the
// new_message notification enqueues atomically with it.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, m *models.Message) error {
	return tx.QueryRow(ctx, `
		INSERT INTO messages (id, task_id, request_id, sender_id, receiver_id, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, m.ID, m.TaskID, m.RequestID, m.SenderID, m.ReceiverID, m.Content).Scan(&m.CreatedAt)
}

func (r *Repository) ListForTask(ctx context.Context, taskID uuid.UUID) ([]*models.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, request_id, sender_id, receiver_id, content, created_at
		FROM messages WHERE task_id = $1 ORDER BY created_at
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.TaskID, &m.RequestID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// HasRequestFrom reports whether the helper has any request on the task,
// which is what entitles a non-party to message the poster.
func (r *Repository) HasRequestFrom(ctx context.Context, taskID, helperID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM task_requests WHERE task_id = $1 AND helper_id = $2)
	`, taskID, helperID).Scan(&exists)
	return exists, err
}
