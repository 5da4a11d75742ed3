package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Profile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Bio          string    `json:"bio,omitempty"`
	PasswordHash string    `json:"-"`
	Credits      int       `json:"credits"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *Profile) IsAdmin() bool { return p.Role == RoleAdmin }
