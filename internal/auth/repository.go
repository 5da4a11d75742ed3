package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusrun/backend/internal/models"
)

const profileColumns = `id, email, full_name, bio, password_hash, credits, role, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new profile and fills in the generated fields.
func (r *Repository) Create(ctx context.Context, p *models.Profile) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, email, full_name, password_hash, credits, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, p.ID, p.Email, p.FullName, p.PasswordHash, p.Credits, p.Role).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return r.scanOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return r.scanOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

func (r *Repository) List(ctx context.Context) ([]*models.Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Profile
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.Bio, &p.PasswordHash, &p.Credits, &p.Role, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

func (r *Repository) scanOne(ctx context.Context, sql string, arg any) (*models.Profile, error) {
	var p models.Profile
	err := r.pool.QueryRow(ctx, sql, arg).Scan(&p.ID, &p.Email, &p.FullName, &p.Bio, &p.PasswordHash, &p.Credits, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
