package ledger

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/billbatista/zensplit/balance"
	"github.com/google/uuid"
)

type SplitType string

const (
	SplitTypeEqual      SplitType = "equal"
	SplitTypePercentage SplitType = "percentage"
	SplitTypeExact      SplitType = "exact"
)

// Ledger is a group of people sharing expenses.
type Ledger struct {
	ID        uuid.UUID `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	CreatedBy uuid.UUID `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Expense struct {
	ID          uuid.UUID      `json:"id,omitempty"`
	LedgerID    uuid.UUID      `json:"ledger_id,omitempty"`
	Description string         `json:"description,omitempty"`
	Amount      float64        `json:"amount,omitempty"`
	PaidBy      string         `json:"paid_by,omitempty"` // payer email
	SplitType   SplitType      `json:"split_type,omitempty"`
	Category    string         `json:"category,omitempty"`
	Splits      balance.Splits `json:"splits,omitempty"`
	CreatedBy   uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
}

type Member struct {
	LedgerID uuid.UUID `json:"ledger_id,omitempty"`
	UserID   uuid.UUID `json:"user_id,omitempty"`
	Email    string    `json:"email,omitempty"`
	JoinedAt time.Time `json:"joined_at,omitempty"`
}

var (
	ErrEmptyName         = errors.New("name can't be empty")
	ErrEmptyCurrency     = errors.New("currency can't be empty")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrUnsupportedSplit  = errors.New("unsupported split type")
	ErrNotFound          = errors.New("ledger not found")
	ErrExpenseNotFound   = errors.New("expense not found")
	ErrNotMember         = errors.New("user is not a member of this ledger")
	ErrPayerNotMember    = errors.New("payer is not a member of this ledger")
	ErrUserNotFound      = errors.New("user not found")
	ErrNotAllowed        = errors.New("only the creator can delete this expense")
	ErrSplitsNotProvided = errors.New("splits are required for exact split type")
)

// ValidationError carries every problem found with a new expense.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid expense: " + strings.Join(e.Errors, "; ")
}

func NewLedger(name string, currency string, createdBy uuid.UUID) (Ledger, error) {
	if strings.TrimSpace(name) == "" {
		return Ledger{}, ErrEmptyName
	}

	if strings.TrimSpace(currency) == "" {
		return Ledger{}, ErrEmptyCurrency
	}

	now := time.Now().UTC()

	return Ledger{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Currency:  strings.ToUpper(strings.TrimSpace(currency)),
		CreatedBy: createdBy,
		CreatedAt: now,
	}, nil
}

// NewExpense validates a new expense and normalizes its payer and split keys.
// A *ValidationError is returned when the expense would be rejected by the
// balance calculation.
func NewExpense(ledgerID uuid.UUID, description string, amount float64, payer string, splitType SplitType, category string, splits balance.Splits, createdBy uuid.UUID) (*Expense, error) {
	validation := balance.ValidateExpenseBeforeAdd(balance.Expense{
		Description: description,
		Amount:      balance.Amount(amount),
		Payer:       payer,
		Splits:      splits,
	})
	if !validation.IsValid {
		return nil, &ValidationError{Errors: validation.Errors}
	}
	normalized, err := balance.NormalizeSplits(splits, amount)
	if err != nil {
		return nil, &ValidationError{Errors: []string{err.Error()}}
	}

	expense := &Expense{
		ID:          uuid.New(),
		LedgerID:    ledgerID,
		Description: strings.TrimSpace(description),
		Amount:      balance.RoundCurrency(amount),
		PaidBy:      balance.NormalizeEmail(payer),
		SplitType:   splitType,
		Category:    category,
		Splits:      normalized,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}

	return expense, nil
}

// BuildSplits derives the splits of a new expense from its split type.
func BuildSplits(splitType SplitType, amount float64, members []string, percentages []balance.Percentage, exact balance.Splits) (balance.Splits, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	switch splitType {
	case SplitTypeEqual, "":
		return balance.CreateEqualSplit(members, amount)
	case SplitTypePercentage:
		return balance.CreatePercentageSplit(percentages, amount)
	case SplitTypeExact:
		if len(exact) == 0 {
			return nil, ErrSplitsNotProvided
		}
		return exact, nil
	default:
		return nil, ErrUnsupportedSplit
	}
}

// Snapshot converts a stored expense into the input of the balance engine.
func (e Expense) Snapshot() balance.Expense {
	return balance.Expense{
		Description: e.Description,
		Amount:      balance.Amount(e.Amount),
		Payer:       e.PaidBy,
		Splits:      e.Splits,
	}
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100
}
