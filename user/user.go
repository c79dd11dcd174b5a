package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeEmployee Type = "Employee"
	TypeAdmin    Type = "Admin"
)

func (t Type) Valid() bool {
	return t == TypeEmployee || t == TypeAdmin
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Type         Type      `json:"type"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Current is the signed-in user as the front end remembers it.
type Current struct {
	Type   Type   `json:"type"`
	Email  string `json:"email,omitempty"`
	Status string `json:"status,omitempty"`
}

func (u User) Current() Current {
	return Current{Type: u.Type, Email: u.Email, Status: "connected"}
}

type Repository interface {
	Register(ctx context.Context, email, password string, userType Type) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
}
