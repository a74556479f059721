package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/billbatista/zensplit/balance"
	"github.com/google/uuid"
)

type Repository interface {
	CreateNew(ctx context.Context, ledger Ledger) (string, error)
	AddMemberByEmail(ctx context.Context, ledgerID uuid.UUID, email string) error
	GetLedgerByID(ctx context.Context, ledgerID uuid.UUID) (*Ledger, error)
	GetLedgerMembers(ctx context.Context, ledgerID uuid.UUID) ([]Member, error)
	GetUserLedgers(ctx context.Context, userID uuid.UUID) ([]Ledger, error)
	SaveExpense(ctx context.Context, expense Expense) error
	ListExpenses(ctx context.Context, ledgerID uuid.UUID) ([]Expense, error)
	GetExpense(ctx context.Context, expenseID uuid.UUID) (*Expense, error)
	DeleteExpense(ctx context.Context, expenseID uuid.UUID) error
}

// SettlementSource supplies the verified payments of a ledger.
type SettlementSource interface {
	ListSettlements(ctx context.Context, ledgerID uuid.UUID) ([]balance.Payment, error)
}

type Service struct {
	repo        Repository
	settlements SettlementSource
	logger      *slog.Logger
}

func NewService(repo Repository, settlements SettlementSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, settlements: settlements, logger: logger}
}

type ExpenseInput struct {
	LedgerID    uuid.UUID
	Description string
	Amount      float64
	Payer       string
	SplitType   SplitType
	Category    string
	Percentages []balance.Percentage
	Splits      balance.Splits
	CreatedBy   uuid.UUID
	CreatorMail string
}

func (s *Service) CreateLedger(ctx context.Context, name, currency string, createdBy uuid.UUID) (Ledger, error) {
	ledger, err := NewLedger(name, currency, createdBy)
	if err != nil {
		return Ledger{}, err
	}
	if _, err := s.repo.CreateNew(ctx, ledger); err != nil {
		return Ledger{}, fmt.Errorf("creating ledger: %w", err)
	}
	return ledger, nil
}

func (s *Service) Ledgers(ctx context.Context, userID uuid.UUID) ([]Ledger, error) {
	return s.repo.GetUserLedgers(ctx, userID)
}

// AddMember adds a registered user to the ledger. Only members can add others.
func (s *Service) AddMember(ctx context.Context, ledgerID uuid.UUID, requester, email string) error {
	if _, err := s.memberEmails(ctx, ledgerID, requester); err != nil {
		return err
	}
	return s.repo.AddMemberByEmail(ctx, ledgerID, balance.NormalizeEmail(email))
}

func (s *Service) Members(ctx context.Context, ledgerID uuid.UUID, viewer string) ([]string, error) {
	return s.memberEmails(ctx, ledgerID, viewer)
}

func (s *Service) Expenses(ctx context.Context, ledgerID uuid.UUID, viewer string) ([]Expense, error) {
	if _, err := s.memberEmails(ctx, ledgerID, viewer); err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, ledgerID)
}

// AddExpense builds the splits for a new expense, validates it and stores it.
// Both the creator and the payer must be members of the ledger.
func (s *Service) AddExpense(ctx context.Context, in ExpenseInput) (*Expense, error) {
	members, err := s.memberEmails(ctx, in.LedgerID, in.CreatorMail)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(members, balance.NormalizeEmail(in.Payer)) {
		return nil, ErrPayerNotMember
	}

	splits, err := BuildSplits(in.SplitType, in.Amount, members, in.Percentages, in.Splits)
	if err != nil {
		return nil, err
	}

	expense, err := NewExpense(in.LedgerID, in.Description, in.Amount, in.Payer, in.SplitType, in.Category, splits, in.CreatedBy)
	if err != nil {
		return nil, err
	}
	if expense.SplitType == "" {
		expense.SplitType = SplitTypeEqual
	}

	if err := s.repo.SaveExpense(ctx, *expense); err != nil {
		return nil, fmt.Errorf("saving expense: %w", err)
	}
	return expense, nil
}

// DeleteExpense removes an expense of the ledger. Only its creator may do so.
func (s *Service) DeleteExpense(ctx context.Context, ledgerID, expenseID, requester uuid.UUID) error {
	expense, err := s.repo.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if expense == nil || expense.LedgerID != ledgerID {
		return ErrExpenseNotFound
	}
	if expense.CreatedBy != requester {
		return ErrNotAllowed
	}
	return s.repo.DeleteExpense(ctx, expenseID)
}

// Balances loads the ledger snapshot and runs the balance calculation for viewer.
func (s *Service) Balances(ctx context.Context, ledgerID uuid.UUID, viewer string) (balance.Result, error) {
	members, err := s.memberEmails(ctx, ledgerID, viewer)
	if err != nil {
		return balance.Result{}, err
	}

	expenses, err := s.repo.ListExpenses(ctx, ledgerID)
	if err != nil {
		return balance.Result{}, fmt.Errorf("listing expenses: %w", err)
	}

	payments, err := s.settlements.ListSettlements(ctx, ledgerID)
	if err != nil {
		return balance.Result{}, fmt.Errorf("listing settlements: %w", err)
	}

	snapshot := make([]balance.Expense, 0, len(expenses))
	for _, expense := range expenses {
		snapshot = append(snapshot, expense.Snapshot())
	}

	result := balance.CalculateBalances(snapshot, viewer, members, payments)
	if result.Summary.Error != "" {
		s.logger.ErrorContext(ctx, "balance calculation failed", "ledger_id", ledgerID, "error", result.Summary.Error)
	}
	for _, detail := range result.Details {
		if !detail.IsValid {
			s.logger.WarnContext(ctx, "expense excluded from balances", "ledger_id", ledgerID, "expense_id", expenses[detail.Index].ID, "errors", detail.Errors)
		}
	}
	return result, nil
}

// memberEmails returns the ledger's member emails after checking viewer is one of them.
func (s *Service) memberEmails(ctx context.Context, ledgerID uuid.UUID, viewer string) ([]string, error) {
	ledger, err := s.repo.GetLedgerByID(ctx, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("fetching ledger: %w", err)
	}
	if ledger == nil {
		return nil, ErrNotFound
	}

	members, err := s.repo.GetLedgerMembers(ctx, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("fetching members: %w", err)
	}

	emails := make([]string, 0, len(members))
	for _, m := range members {
		emails = append(emails, balance.NormalizeEmail(m.Email))
	}
	if !slices.Contains(emails, balance.NormalizeEmail(viewer)) {
		return nil, ErrNotMember
	}
	return emails, nil
}
