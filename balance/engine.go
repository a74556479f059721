package balance

import (
	"fmt"
	"math"
)

type entry struct {
	balance    float64
	paid       float64
	owes       float64
	splitTotal float64
	// participant is set once the user shows up in an expense, as opposed to
	// only in a settlement payment.
	participant bool
}

// ledger is the per-call accumulator, keyed by normalized email.
type ledger map[string]*entry

func (l ledger) get(user string) *entry {
	e, ok := l[user]
	if !ok {
		e = &entry{}
		l[user] = e
	}
	return e
}

// CalculateBalances computes the net balance of every user in expenses and
// verifiedPayments, as seen by currentUser. Expenses without splits are first
// split equally across groupMembers.
//
// It never fails: invalid input, or any panic while computing, produces a
// Result with empty balances and Summary.Error set. Individual invalid
// expenses are skipped and reported in Details.
func CalculateBalances(expenses []Expense, currentUser string, groupMembers []string, verifiedPayments []Payment) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = errorResult(fmt.Errorf("%w: %v", ErrCalculation, r))
		}
	}()

	current := NormalizeEmail(currentUser)
	if current == "" {
		return errorResult(fmt.Errorf("%w: current user email is required", ErrInvalidInput))
	}

	fixed := AutoFixExpenses(expenses, groupMembers)

	l := ledger{}
	details := make([]ProcessedExpense, 0, len(fixed))
	var total float64
	for i, expense := range fixed {
		processed := processExpense(expense, i)
		details = append(details, processed)
		if processed.IsValid {
			total += processed.Amount
			l.record(processed)
		}
	}

	l.applyPayments(verifiedPayments)
	balances := l.finalize(current)

	if verifiedPayments == nil {
		verifiedPayments = []Payment{}
	}
	return Result{
		Balances:           balances,
		Summary:            summarize(balances, l, total, current, verifiedPayments),
		Details:            details,
		TotalExpenseAmount: RoundCurrency(total),
		VerifiedPayments:   verifiedPayments,
	}
}

func errorResult(err error) Result {
	return Result{
		Balances:         map[string]float64{},
		Summary:          Summary{Error: err.Error()},
		Details:          []ProcessedExpense{},
		VerifiedPayments: []Payment{},
	}
}

func processExpense(expense Expense, index int) ProcessedExpense {
	processed := ProcessedExpense{
		Index:        index,
		Original:     expense,
		Errors:       []string{},
		Splits:       Splits{},
		Participants: []string{},
	}

	amount := expense.Amount.Float()
	if amount <= 0 {
		processed.Errors = append(processed.Errors, fmt.Sprintf("invalid amount: %v", float64(expense.Amount)))
		return processed
	}
	processed.Amount = amount

	payer := NormalizeEmail(expense.Payer)
	if payer == "" {
		processed.Errors = append(processed.Errors, "invalid payer")
		return processed
	}
	processed.Payer = payer

	check := checkSplits(expense.Splits, amount)
	processed.Errors = append(processed.Errors, check.errors...)
	if !check.valid {
		return processed
	}

	processed.Splits = check.splits
	processed.Participants = check.participants
	processed.IsValid = true
	return processed
}

// record credits the payer and debits every participant of one valid expense.
func (l ledger) record(p ProcessedExpense) {
	payer := l.get(p.Payer)
	payer.participant = true
	payer.paid += p.Amount

	for _, share := range p.Splits {
		l.get(share.Participant).participant = true
	}

	for _, share := range p.Splits {
		amount := float64(share.Amount)
		e := l[share.Participant]
		e.owes += amount
		e.splitTotal += amount
		if share.Participant == p.Payer {
			e.balance += p.Amount - amount
		} else {
			e.balance -= amount
		}
	}

	// A payer outside the split covered everyone else's shares in full.
	if _, ok := p.Splits.Get(p.Payer); !ok {
		payer.balance += p.Amount
	}
}

// applyPayments moves the balances of verified payments: the payer owes that
// much less and the payee is owed that much less. Payments are not deduplicated.
func (l ledger) applyPayments(payments []Payment) {
	for _, payment := range payments {
		if payment.Status != StatusVerified {
			continue
		}
		amount := payment.Amount.Float()
		if amount <= 0 {
			continue
		}
		payer := NormalizeEmail(payment.Payer)
		payee := NormalizeEmail(payment.Payee)
		if payer == "" || payee == "" {
			continue
		}

		l.get(payer).balance += amount
		l.get(payee).balance -= amount
	}
}

func (l ledger) finalize(current string) map[string]float64 {
	balances := make(map[string]float64)
	for user, e := range l {
		rounded := RoundCurrency(e.balance)
		if math.Abs(rounded) > Tolerance && user != current {
			balances[user] = rounded
		}
	}
	return balances
}

func summarize(balances map[string]float64, l ledger, total float64, current string, payments []Payment) Summary {
	var youOwe, youAreOwed float64
	for _, b := range balances {
		if b > 0 {
			youOwe += b
		} else {
			youAreOwed += -b
		}
	}

	var verified, sent, received float64
	for _, payment := range payments {
		if payment.Status != StatusVerified {
			continue
		}
		amount := payment.Amount.Float()
		verified += amount
		if NormalizeEmail(payment.Payer) == current {
			sent += amount
		}
		if NormalizeEmail(payment.Payee) == current {
			received += amount
		}
	}

	participants := 0
	for _, e := range l {
		if e.participant {
			participants++
		}
	}

	mine := l[current]
	if mine == nil {
		mine = &entry{}
	}

	return Summary{
		TotalExpenses:         RoundCurrency(total),
		YourTotalPaid:         RoundCurrency(mine.paid),
		YourTotalShare:        RoundCurrency(mine.owes),
		YouOwe:                RoundCurrency(youOwe),
		YouAreOwed:            RoundCurrency(youAreOwed),
		NetBalance:            RoundCurrency(youAreOwed - youOwe),
		ParticipantCount:      participants,
		IsSettled:             math.Abs(youOwe-youAreOwed) < Tolerance,
		TotalVerifiedPayments: RoundCurrency(verified),
		YourPaymentsSent:      RoundCurrency(sent),
		YourPaymentsReceived:  RoundCurrency(received),
	}
}
