package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/billbatista/zensplit/balance"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) CreateNew(ctx context.Context, ledger Ledger) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	var lastId string
	if err != nil {
		return lastId, err
	}
	defer tx.Rollback()

	insertLedger := `INSERT INTO ledgers (id, name, currency, created_by, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err = tx.QueryRowContext(
		ctx,
		insertLedger,
		ledger.ID,
		ledger.Name,
		ledger.Currency,
		ledger.CreatedBy,
		ledger.CreatedAt,
	).Scan(&lastId)
	if err != nil {
		return lastId, err
	}

	insertLedgerUser := `INSERT INTO ledger_users (ledger_id, user_id) VALUES ($1, $2)`
	_, err = tx.ExecContext(ctx, insertLedgerUser, ledger.ID, ledger.CreatedBy)
	if err != nil {
		return lastId, err
	}

	return lastId, tx.Commit()
}

// AddMemberByEmail adds the registered user with that email to the ledger.
// Adding an existing member is a no-op.
func (r *repository) AddMemberByEmail(ctx context.Context, ledgerID uuid.UUID, email string) error {
	var userID uuid.UUID
	err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrUserNotFound
		}
		return fmt.Errorf("querying user: %w", err)
	}

	query := `INSERT INTO ledger_users (ledger_id, user_id) VALUES ($1, $2) ON CONFLICT (ledger_id, user_id) DO NOTHING`
	_, err = r.db.ExecContext(ctx, query, ledgerID, userID)
	return err
}

func (r *repository) GetLedgerByID(ctx context.Context, ledgerID uuid.UUID) (*Ledger, error) {
	query := `SELECT id, name, currency, created_by, created_at FROM ledgers WHERE id = $1`

	var ledger Ledger
	err := r.db.QueryRowContext(ctx, query, ledgerID).Scan(
		&ledger.ID,
		&ledger.Name,
		&ledger.Currency,
		&ledger.CreatedBy,
		&ledger.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &ledger, nil
}

func (r *repository) GetLedgerMembers(ctx context.Context, ledgerID uuid.UUID) ([]Member, error) {
	query := `SELECT lu.ledger_id, lu.user_id, u.email, lu.joined_at
              FROM ledger_users lu
              INNER JOIN users u ON u.id = lu.user_id
              WHERE lu.ledger_id = $1
              ORDER BY lu.joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var member Member
		err := rows.Scan(&member.LedgerID, &member.UserID, &member.Email, &member.JoinedAt)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

func (r *repository) GetUserLedgers(ctx context.Context, userID uuid.UUID) ([]Ledger, error) {
	query := `SELECT l.id, l.name, l.currency, l.created_by, l.created_at
              FROM ledgers l
              INNER JOIN ledger_users lu ON l.id = lu.ledger_id
              WHERE lu.user_id = $1
              ORDER BY l.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ledgers []Ledger
	for rows.Next() {
		var ledger Ledger
		err := rows.Scan(&ledger.ID, &ledger.Name, &ledger.Currency, &ledger.CreatedBy, &ledger.CreatedAt)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, ledger)
	}

	return ledgers, rows.Err()
}

func (r *repository) SaveExpense(ctx context.Context, expense Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO ledger_expenses (id, ledger_id, description, amount, paid_by, split_type, category, created_by, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = tx.ExecContext(
		ctx,
		query,
		expense.ID,
		expense.LedgerID,
		expense.Description,
		toCents(expense.Amount),
		expense.PaidBy,
		expense.SplitType,
		expense.Category,
		expense.CreatedBy,
		expense.CreatedAt,
	)
	if err != nil {
		return err
	}

	for i, share := range expense.Splits {
		query = `INSERT INTO ledger_expense_splits (expense_id, position, participant, amount) VALUES ($1, $2, $3, $4)`
		_, err = tx.ExecContext(ctx, query, expense.ID, i, share.Participant, toCents(float64(share.Amount)))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListExpenses returns the ledger's expenses, newest first, each with its
// splits in the order they were entered.
func (r *repository) ListExpenses(ctx context.Context, ledgerID uuid.UUID) ([]Expense, error) {
	query := `SELECT id, ledger_id, description, amount, paid_by, split_type, category, created_by, created_at
              FROM ledger_expenses
              WHERE ledger_id = $1
              ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ledgerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadSplits(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *repository) GetExpense(ctx context.Context, expenseID uuid.UUID) (*Expense, error) {
	query := `SELECT id, ledger_id, description, amount, paid_by, split_type, category, created_by, created_at
              FROM ledger_expenses
              WHERE id = $1`

	expense, err := scanExpense(r.db.QueryRowContext(ctx, query, expenseID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	expenses := []Expense{expense}
	if err := r.loadSplits(ctx, expenses); err != nil {
		return nil, err
	}
	return &expenses[0], nil
}

// DeleteExpense removes an expense; its splits go with it (ON DELETE CASCADE).
func (r *repository) DeleteExpense(ctx context.Context, expenseID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM ledger_expenses WHERE id = $1`, expenseID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

func (r *repository) loadSplits(ctx context.Context, expenses []Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	ids := make([]string, 0, len(expenses))
	byID := make(map[uuid.UUID]int, len(expenses))
	for i, expense := range expenses {
		ids = append(ids, expense.ID.String())
		byID[expense.ID] = i
	}

	query := `SELECT expense_id, participant, amount
              FROM ledger_expense_splits
              WHERE expense_id = ANY($1::uuid[])
              ORDER BY expense_id, position`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			expenseID   uuid.UUID
			participant string
			cents       int64
		)
		if err := rows.Scan(&expenseID, &participant, &cents); err != nil {
			return err
		}
		i, ok := byID[expenseID]
		if !ok {
			continue
		}
		expenses[i].Splits = append(expenses[i].Splits, balance.Share{
			Participant: participant,
			Amount:      balance.Amount(fromCents(cents)),
		})
	}

	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (Expense, error) {
	var (
		expense  Expense
		cents    int64
		category sql.NullString
	)
	err := row.Scan(
		&expense.ID,
		&expense.LedgerID,
		&expense.Description,
		&cents,
		&expense.PaidBy,
		&expense.SplitType,
		&category,
		&expense.CreatedBy,
		&expense.CreatedAt,
	)
	if err != nil {
		return Expense{}, err
	}
	expense.Amount = fromCents(cents)
	if category.Valid {
		expense.Category = category.String
	}
	return expense, nil
}
