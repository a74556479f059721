// Package balance turns a snapshot of group expenses and verified settlement
// payments into per-user net balances.
//
// Everything in this package is a pure function over its arguments: there is
// no I/O and no package-level mutable state, so concurrent calls for
// different viewers are independent.
//
// Balances are globally signed. A positive balance means the group owes that
// user money, a negative one means the user owes the group. The viewer passed
// to CalculateBalances is only used to drop their own entry and to compute the
// "your" figures of the Summary; signs are never flipped relative to them.
package balance

import (
	"errors"
	"strings"
)

const (
	// Precision is the number of decimal places currency values are rounded to.
	Precision = 2
	// Tolerance is the absolute difference under which two amounts are equal.
	Tolerance = 0.01
)

var (
	ErrInvalidInput = errors.New("balance: invalid input")
	ErrCalculation  = errors.New("balance: calculation failed")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusVerified  Status = "verified"
	StatusCancelled Status = "cancelled"
)

// Expense is one expense record as fetched from storage.
type Expense struct {
	Description string `json:"description,omitempty"`
	Amount      Amount `json:"amount"`
	Payer       string `json:"payer"`
	Splits      Splits `json:"splits,omitempty"`
	// AutoFixed marks expenses whose splits were synthesized by AutoFixExpenses.
	AutoFixed bool `json:"_autoFixed,omitempty"`
}

// Payment is a settlement transfer from Payer to Payee. Only verified
// payments move balances.
type Payment struct {
	Payer  string `json:"payer"`
	Payee  string `json:"payee"`
	Amount Amount `json:"amount"`
	Status Status `json:"status"`
}

// ProcessedExpense is the normalized view of one input expense. Invalid
// expenses keep their errors here and are left out of the ledger.
type ProcessedExpense struct {
	Index        int      `json:"index"`
	Original     Expense  `json:"originalExpense"`
	IsValid      bool     `json:"isValid"`
	Errors       []string `json:"errors"`
	Amount       float64  `json:"amount"`
	Payer        string   `json:"payer"`
	Splits       Splits   `json:"splits"`
	Participants []string `json:"participants"`
}

type Summary struct {
	Error                 string  `json:"error,omitempty"`
	TotalExpenses         float64 `json:"totalExpenses"`
	YourTotalPaid         float64 `json:"yourTotalPaid"`
	YourTotalShare        float64 `json:"yourTotalShare"`
	YouOwe                float64 `json:"youOwe"`
	YouAreOwed            float64 `json:"youAreOwed"`
	NetBalance            float64 `json:"netBalance"`
	ParticipantCount      int     `json:"participantCount"`
	IsSettled             bool    `json:"isSettled"`
	TotalVerifiedPayments float64 `json:"totalVerifiedPayments"`
	YourPaymentsSent      float64 `json:"yourPaymentsSent"`
	YourPaymentsReceived  float64 `json:"yourPaymentsReceived"`
}

type Result struct {
	Balances           map[string]float64 `json:"balances"`
	Summary            Summary            `json:"summary"`
	Details            []ProcessedExpense `json:"details"`
	TotalExpenseAmount float64            `json:"totalExpenseAmount"`
	VerifiedPayments   []Payment          `json:"verifiedPayments"`
}

// NormalizeEmail trims and lowercases a user identifier.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
