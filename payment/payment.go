package payment

import (
	"errors"
	"strings"
	"time"

	"github.com/billbatista/zensplit/balance"
	"github.com/google/uuid"
)

var (
	ErrMissingParty     = errors.New("payer and payee are required")
	ErrSameParty        = errors.New("payer and payee must be different")
	ErrInvalidAmount    = errors.New("valid amount is required")
	ErrNotFound         = errors.New("payment not found")
	ErrNotPending       = errors.New("payment is no longer pending")
	ErrOnlyPayee        = errors.New("only the payee can verify the payment")
	ErrOnlyParties      = errors.New("only the payer or payee can cancel the payment")
	ErrCannotDelete     = errors.New("you can only delete payments you created or payments where you are the payer")
	ErrVerifiedDeletion = errors.New("cannot delete verified payments")
	ErrUnknownUser      = errors.New("payer or payee is not a registered user")
	ErrPartyNotMember   = errors.New("payer and payee must be members of the ledger")
)

// Payment is a settlement declared by one user paying another, optionally
// inside a ledger. It only moves balances once the payee verifies it.
type Payment struct {
	ID         uuid.UUID      `json:"id"`
	LedgerID   uuid.NullUUID  `json:"ledger_id"`
	Payer      string         `json:"payer"`
	Payee      string         `json:"payee"`
	Amount     float64        `json:"amount"`
	Note       string         `json:"note"`
	Status     balance.Status `json:"status"`
	CreatedBy  string         `json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
	VerifiedAt *time.Time     `json:"verified_at"`
	VerifiedBy string         `json:"verified_by,omitempty"`
}

// NewPayment declares a pending payment from payer to payee.
func NewPayment(ledgerID uuid.NullUUID, payer, payee string, amount float64, note, createdBy string) (*Payment, error) {
	payer = balance.NormalizeEmail(payer)
	payee = balance.NormalizeEmail(payee)
	if payer == "" || payee == "" {
		return nil, ErrMissingParty
	}
	if payer == payee {
		return nil, ErrSameParty
	}
	if !(amount > 0) {
		return nil, ErrInvalidAmount
	}

	return &Payment{
		ID:        uuid.New(),
		LedgerID:  ledgerID,
		Payer:     payer,
		Payee:     payee,
		Amount:    balance.RoundCurrency(amount),
		Note:      strings.TrimSpace(note),
		Status:    balance.StatusPending,
		CreatedBy: balance.NormalizeEmail(createdBy),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Verify marks the payment as received. Only the payee can do it.
func (p *Payment) Verify(by string, at time.Time) error {
	if balance.NormalizeEmail(by) != p.Payee {
		return ErrOnlyPayee
	}
	if p.Status != balance.StatusPending {
		return ErrNotPending
	}
	p.Status = balance.StatusVerified
	p.VerifiedAt = &at
	p.VerifiedBy = p.Payee
	return nil
}

func (p *Payment) Cancel(by string) error {
	by = balance.NormalizeEmail(by)
	if by != p.Payer && by != p.Payee {
		return ErrOnlyParties
	}
	if p.Status != balance.StatusPending {
		return ErrNotPending
	}
	p.Status = balance.StatusCancelled
	return nil
}

// CanDelete reports whether by may delete the payment: its creator or payer,
// as long as it was never verified.
func (p *Payment) CanDelete(by string) error {
	by = balance.NormalizeEmail(by)
	if by != p.CreatedBy && by != p.Payer {
		return ErrCannotDelete
	}
	if p.Status == balance.StatusVerified {
		return ErrVerifiedDeletion
	}
	return nil
}

// Settlement converts p into the input of the balance calculation.
func (p Payment) Settlement() balance.Payment {
	return balance.Payment{
		Payer:  p.Payer,
		Payee:  p.Payee,
		Amount: balance.Amount(p.Amount),
		Status: p.Status,
	}
}
