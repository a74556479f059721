package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	UPI          string    `json:"upi"` // payment handle shown to people settling up
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName is the name, or the local part of the email when no name is set.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

type Registration struct {
	Name     string
	Email    string
	Password string
	UPI      string
}

type Repository interface {
	Register(ctx context.Context, reg Registration) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	VerifyPassword(hashedPassword, password string) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, name, upi string) error
}
