// Package auth is the identity/session provider: signup, login and
// token validation. It exposes the authenticated user id to the core
// and owns nothing of the task lifecycle.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusrun/backend/internal/models"
)

// ErrDuplicateEmail is returned when registering with an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrInvalidCredentials is returned on a failed login or bad token.
var ErrInvalidCredentials = errors.New("invalid credentials")

const tokenTTL = 24 * time.Hour

type Service interface {
	Register(ctx context.Context, email, password, fullName string) (*models.Profile, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
	ProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type service struct {
	repo   *Repository
	secret []byte
}

func NewService(repo *Repository, secret string) Service {
	return &service{repo: repo, secret: []byte(secret)}
}

var _ Service = (*service)(nil)

func (s *service) Register(ctx context.Context, email, password, fullName string) (*models.Profile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	p := &models.Profile{
		ID:           uuid.New(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return p, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	p, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(p.ID)
}

func (s *service) issueToken(userID uuid.UUID) (string, error) {
	c := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	tok, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, ErrInvalidCredentials
	}
	c, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok || !tok.Valid {
		return uuid.Nil, ErrInvalidCredentials
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidCredentials
	}
	return id, nil
}

func (s *service) ProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return s.repo.GetByID(ctx, id)
}
