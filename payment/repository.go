package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/billbatista/zensplit/balance"
	"github.com/google/uuid"
)

const paymentColumns = `id, ledger_id, payer, payee, amount, COALESCE(note, ''), status, created_by, created_at, verified_at, COALESCE(verified_by, '')`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p Payment) error {
	query := `INSERT INTO payments (id, ledger_id, payer, payee, amount, note, status, created_by, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		p.ID,
		p.LedgerID,
		p.Payer,
		p.Payee,
		toCents(p.Amount),
		p.Note,
		p.Status,
		p.CreatedBy,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying payment: %w", err)
	}
	return &p, nil
}

// ListForUser returns the payments where email is payer or payee, newest
// first. A valid ledgerID narrows the list to that ledger.
func (r *repository) ListForUser(ctx context.Context, email string, ledgerID uuid.NullUUID) ([]Payment, error) {
	query := `SELECT ` + paymentColumns + `
              FROM payments
              WHERE (payer = $1 OR payee = $1)
                AND ($2::uuid IS NULL OR ledger_id = $2)
              ORDER BY created_at DESC`

	return r.list(ctx, query, email, ledgerID)
}

// ListSettlements returns the verified payments of a ledger, oldest first, in
// the form the balance calculation takes.
func (r *repository) ListSettlements(ctx context.Context, ledgerID uuid.UUID) ([]balance.Payment, error) {
	query := `SELECT ` + paymentColumns + `
              FROM payments
              WHERE ledger_id = $1 AND status = $2
              ORDER BY created_at ASC`

	payments, err := r.list(ctx, query, ledgerID, balance.StatusVerified)
	if err != nil {
		return nil, err
	}

	settlements := make([]balance.Payment, 0, len(payments))
	for _, p := range payments {
		settlements = append(settlements, p.Settlement())
	}
	return settlements, nil
}

// UpdateStatus persists a status change. The update only applies while the
// stored payment is still pending.
func (r *repository) UpdateStatus(ctx context.Context, p Payment) error {
	query := `UPDATE payments SET status = $1, verified_at = $2, verified_by = $3 WHERE id = $4 AND status = $5`

	var verifiedBy sql.NullString
	if p.VerifiedBy != "" {
		verifiedBy = sql.NullString{String: p.VerifiedBy, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query, p.Status, p.VerifiedAt, verifiedBy, p.ID, balance.StatusPending)
	if err != nil {
		return fmt.Errorf("updating payment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

// Delete removes a payment unless it has been verified in the meantime.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1 AND status <> $2`, id, balance.StatusVerified)
	if err != nil {
		return fmt.Errorf("deleting payment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM payments WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking payment status: %w", err)
	}
	return ErrVerifiedDeletion
}

func (r *repository) list(ctx context.Context, query string, args ...any) ([]Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying payments: %w", err)
	}
	defer rows.Close()

	payments := make([]Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (Payment, error) {
	var (
		p          Payment
		cents      int64
		verifiedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.LedgerID,
		&p.Payer,
		&p.Payee,
		&cents,
		&p.Note,
		&p.Status,
		&p.CreatedBy,
		&p.CreatedAt,
		&verifiedAt,
		&p.VerifiedBy,
	)
	if err != nil {
		return Payment{}, err
	}
	p.Amount = float64(cents) / 100
	if verifiedAt.Valid {
		t := verifiedAt.Time
		p.VerifiedAt = &t
	}
	return p, nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
