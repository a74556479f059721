package ledger

import "time"

// Event payloads recorded through the event logger.

type LedgerCreatedEvent struct {
	LedgerID  string    `json:"ledger_id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberAddedEvent struct {
	LedgerID string `json:"ledger_id"`
	Email    string `json:"email"`
	AddedBy  string `json:"added_by"`
}

type ExpenseAddedEvent struct {
	ExpenseID   string    `json:"expense_id"`
	LedgerID    string    `json:"ledger_id"`
	PaidBy      string    `json:"paid_by"`
	AmountCents int64     `json:"amount_cents"` // Total amount in cents
	Description string    `json:"description"`
	Category    string    `json:"category"` // e.g., "groceries", "utilities", "rent"
	SplitType   SplitType `json:"split_type"`
	Splits      []Split   `json:"splits"` // How the expense is divided among members
	CreatedAt   time.Time `json:"created_at"`
}

type Split struct {
	Email       string `json:"email"`
	AmountCents int64  `json:"amount_cents"` // Amount in cents this person owes for this expense
}

type ExpenseDeletedEvent struct {
	ExpenseID string `json:"expense_id"`
	LedgerID  string `json:"ledger_id"`
	DeletedBy string `json:"deleted_by"`
}

// AddedEvent describes e for the event log.
func (e Expense) AddedEvent() ExpenseAddedEvent {
	splits := make([]Split, 0, len(e.Splits))
	for _, share := range e.Splits {
		splits = append(splits, Split{Email: share.Participant, AmountCents: toCents(float64(share.Amount))})
	}
	return ExpenseAddedEvent{
		ExpenseID:   e.ID.String(),
		LedgerID:    e.LedgerID.String(),
		PaidBy:      e.PaidBy,
		AmountCents: toCents(e.Amount),
		Description: e.Description,
		Category:    e.Category,
		SplitType:   e.SplitType,
		Splits:      splits,
		CreatedAt:   e.CreatedAt,
	}
}
