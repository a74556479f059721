package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/billbatista/zensplit/balance"
	"github.com/billbatista/zensplit/validation"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailExists   = errors.New("email already exists")
	ErrInvalidEmail  = errors.New("invalid email format")
	ErrBlankPassword = errors.New("password can't be blank")
)

// unique_violation
const uniqueViolation = pq.ErrorCode("23505")

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Register(ctx context.Context, reg Registration) (*User, error) {
	email := balance.NormalizeEmail(reg.Email)
	if !validation.Email(email) {
		return nil, ErrInvalidEmail
	}

	if reg.Password == "" {
		return nil, ErrBlankPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(reg.Name),
		Email:        email,
		UPI:          strings.TrimSpace(reg.UPI),
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	}

	query := `INSERT INTO users (id, name, email, upi, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.UPI, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	return user, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, COALESCE(name, ''), email, COALESCE(upi, ''), password_hash, created_at FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, balance.NormalizeEmail(email)))
	if err != nil && err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return user, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT id, COALESCE(name, ''), email, COALESCE(upi, ''), password_hash, created_at FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return user, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	if err := r.db.QueryRowContext(ctx, query, balance.NormalizeEmail(email)).Scan(&exists); err != nil {
		return false, fmt.Errorf("querying user: %w", err)
	}
	return exists, nil
}

func (r *repository) UpdateProfile(ctx context.Context, userID uuid.UUID, name, upi string) error {
	query := `UPDATE users SET name = $1, upi = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, strings.TrimSpace(name), strings.TrimSpace(upi), userID)
	return err
}

func (r *repository) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.UPI,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
