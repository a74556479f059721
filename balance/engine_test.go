package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerSum(l ledger) float64 {
	var total float64
	for _, e := range l {
		total += e.balance
	}
	return total
}

func buildLedger(t *testing.T, expenses []Expense, payments []Payment) ledger {
	t.Helper()
	l := ledger{}
	for i, expense := range expenses {
		p := processExpense(expense, i)
		require.True(t, p.IsValid, "expense %d: %v", i, p.Errors)
		l.record(p)
	}
	l.applyPayments(payments)
	return l
}

func TestCalculateBalances_PayerInSplits(t *testing.T) {
	expenses := []Expense{{
		Description: "dinner",
		Amount:      100,
		Payer:       "a",
		Splits:      Splits{{"a", 40}, {"b", 60}},
	}}

	result := CalculateBalances(expenses, "a", nil, nil)

	assert.Empty(t, result.Summary.Error)
	assert.Equal(t, map[string]float64{"b": -60}, result.Balances)
	assert.Equal(t, 100.0, result.TotalExpenseAmount)
	require.Len(t, result.Details, 1)
	assert.True(t, result.Details[0].IsValid)
	assert.Equal(t, []string{"a", "b"}, result.Details[0].Participants)

	s := result.Summary
	assert.Equal(t, 100.0, s.YourTotalPaid)
	assert.Equal(t, 40.0, s.YourTotalShare)
	assert.Equal(t, 0.0, s.YouOwe)
	assert.Equal(t, 60.0, s.YouAreOwed)
	assert.Equal(t, 60.0, s.NetBalance)
	assert.Equal(t, 2, s.ParticipantCount)
	assert.False(t, s.IsSettled)
}

func TestCalculateBalances_PayerOutsideSplits(t *testing.T) {
	expenses := []Expense{{
		Description: "tickets",
		Amount:      90,
		Payer:       "A@Example.com ",
		Splits:      Splits{{"b@example.com", 45}, {"c@example.com", 45}},
	}}

	result := CalculateBalances(expenses, "b@example.com", nil, nil)

	assert.Equal(t, map[string]float64{
		"a@example.com": 90,
		"c@example.com": -45,
	}, result.Balances)
	assert.Equal(t, 45.0, result.Summary.YourTotalShare)
	assert.Equal(t, 0.0, result.Summary.YourTotalPaid)
}

func TestCalculateBalances_MismatchedSplitsExcluded(t *testing.T) {
	expenses := []Expense{
		{Description: "bad", Amount: 100, Payer: "a", Splits: Splits{{"a", 45}, {"b", 50}}},
		{Description: "good", Amount: 30, Payer: "b", Splits: Splits{{"a", 15}, {"b", 15}}},
	}

	result := CalculateBalances(expenses, "b", nil, nil)

	require.Len(t, result.Details, 2)
	assert.False(t, result.Details[0].IsValid)
	assert.NotEmpty(t, result.Details[0].Errors)
	assert.Contains(t, result.Details[0].Errors[0], "does not match")
	assert.True(t, result.Details[1].IsValid)
	assert.Equal(t, map[string]float64{"a": -15}, result.Balances)
	assert.Equal(t, 30.0, result.TotalExpenseAmount)
}

func TestCalculateBalances_VerifiedPaymentSettlesDebt(t *testing.T) {
	expenses := []Expense{{Description: "dinner", Amount: 100, Payer: "a", Splits: Splits{{"a", 40}, {"b", 60}}}}
	payments := []Payment{{Payer: "b", Payee: "a", Amount: 60, Status: StatusVerified}}

	result := CalculateBalances(expenses, "a", nil, payments)

	assert.Empty(t, result.Balances)
	assert.True(t, result.Summary.IsSettled)
	assert.Equal(t, 60.0, result.Summary.TotalVerifiedPayments)
	assert.Equal(t, 60.0, result.Summary.YourPaymentsReceived)
	assert.Equal(t, 0.0, result.Summary.YourPaymentsSent)
	assert.Equal(t, payments, result.VerifiedPayments)
}

func TestCalculateBalances_IgnoresUnverifiedPayments(t *testing.T) {
	expenses := []Expense{{Description: "dinner", Amount: 100, Payer: "a", Splits: Splits{{"a", 40}, {"b", 60}}}}
	payments := []Payment{
		{Payer: "b", Payee: "a", Amount: 60, Status: StatusPending},
		{Payer: "b", Payee: "a", Amount: 60, Status: StatusCancelled},
		{Payer: "b", Payee: "a", Amount: 0, Status: StatusVerified},
	}

	result := CalculateBalances(expenses, "a", nil, payments)

	assert.Equal(t, map[string]float64{"b": -60}, result.Balances)
	assert.Equal(t, 0.0, result.Summary.TotalVerifiedPayments)
}

func TestCalculateBalances_AutoFixesMissingSplits(t *testing.T) {
	expenses := []Expense{{Description: "groceries", Amount: 100, Payer: "a"}}

	result := CalculateBalances(expenses, "a", []string{"a", "b", "c"}, nil)

	require.Len(t, result.Details, 1)
	assert.True(t, result.Details[0].IsValid)
	assert.True(t, result.Details[0].Original.AutoFixed)
	assert.Equal(t, map[string]float64{"b": -33.33, "c": -33.34}, result.Balances)
}

func TestCalculateBalances_AutoFixFallsBackToPayer(t *testing.T) {
	expenses := []Expense{{Description: "solo", Amount: 20, Payer: "a"}}

	result := CalculateBalances(expenses, "b", nil, nil)

	require.True(t, result.Details[0].IsValid)
	assert.Empty(t, result.Balances)
	assert.Equal(t, 20.0, result.TotalExpenseAmount)
}

func TestCalculateBalances_InvalidRecordsDoNotAbort(t *testing.T) {
	expenses := []Expense{
		{Description: "zero", Amount: 0, Payer: "a", Splits: Splits{{"a", 1}}},
		{Description: "nobody", Amount: 10, Payer: "  ", Splits: Splits{{"a", 10}}},
		{Description: "ok", Amount: 10, Payer: "a", Splits: Splits{{"b", 10}}},
	}

	result := CalculateBalances(expenses, "a", nil, nil)

	assert.Empty(t, result.Summary.Error)
	assert.Equal(t, []string{"invalid amount: 0"}, result.Details[0].Errors)
	assert.Equal(t, []string{"invalid payer"}, result.Details[1].Errors)
	assert.Equal(t, map[string]float64{"b": -10}, result.Balances)
}

func TestCalculateBalances_MissingCurrentUser(t *testing.T) {
	result := CalculateBalances([]Expense{{Amount: 10, Payer: "a"}}, " ", nil, nil)

	assert.Contains(t, result.Summary.Error, "current user email is required")
	assert.Empty(t, result.Balances)
	assert.NotNil(t, result.Balances)
	assert.Empty(t, result.Details)
	assert.Zero(t, result.TotalExpenseAmount)
}

func TestCalculateBalances_EmptyInput(t *testing.T) {
	result := CalculateBalances(nil, "a", nil, nil)

	assert.Empty(t, result.Summary.Error)
	assert.Empty(t, result.Balances)
	assert.NotNil(t, result.VerifiedPayments)
	assert.True(t, result.Summary.IsSettled)
}

func TestCalculateBalances_DropsDustBalances(t *testing.T) {
	expenses := []Expense{{Description: "gum", Amount: 0.02, Payer: "a", Splits: Splits{{"a", 0.01}, {"b", 0.01}}}}

	result := CalculateBalances(expenses, "c", nil, nil)

	assert.Empty(t, result.Balances)
}

func TestLedger_ZeroSum(t *testing.T) {
	expenses := []Expense{
		{Amount: 100, Payer: "a", Splits: Splits{{"a", 33.33}, {"b", 33.33}, {"c", 33.34}}},
		{Amount: 57.5, Payer: "b", Splits: Splits{{"c", 20}, {"d", 37.5}}},
		{Amount: 12.99, Payer: "d", Splits: Splits{{"d", 6.5}, {"a", 6.49}}},
	}

	l := buildLedger(t, expenses, nil)

	assert.InDelta(t, 0, ledgerSum(l), Tolerance)
}

func subCentShares() Splits {
	splits := Splits{}
	for _, p := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"} {
		splits = append(splits, Share{p, 10.004})
	}
	return append(splits, Share{"j", 9.964})
}

func TestLedger_ZeroSumWithSubCentShares(t *testing.T) {
	expense := Expense{Amount: 100, Payer: "a", Splits: subCentShares()}

	p := processExpense(expense, 0)
	require.True(t, p.IsValid, p.Errors)
	assert.InDelta(t, 100, p.Splits.Total(), Tolerance)
	assert.Equal(t, Amount(10), p.Splits[0].Amount)
	assert.Equal(t, Amount(10), p.Splits[9].Amount)

	l := buildLedger(t, []Expense{expense}, nil)
	assert.InDelta(t, 0, ledgerSum(l), 1e-9)

	again := processExpense(Expense{Amount: 100, Payer: "a", Splits: p.Splits}, 0)
	require.True(t, again.IsValid, again.Errors)
	assert.Equal(t, p.Splits, again.Splits)
}

func TestLedger_PaymentShiftsBalances(t *testing.T) {
	expenses := []Expense{{Amount: 100, Payer: "x", Splits: Splits{{"x", 50}, {"y", 50}}}}
	payment := Payment{Payer: "y", Payee: "x", Amount: 20, Status: StatusVerified}

	before := buildLedger(t, expenses, nil)
	once := buildLedger(t, expenses, []Payment{payment})
	twice := buildLedger(t, expenses, []Payment{payment, payment})

	assert.InDelta(t, before["y"].balance+20, once["y"].balance, 1e-9)
	assert.InDelta(t, before["x"].balance-20, once["x"].balance, 1e-9)
	assert.InDelta(t, before["y"].balance+40, twice["y"].balance, 1e-9)
	assert.InDelta(t, before["x"].balance-40, twice["x"].balance, 1e-9)
}

func TestLedger_PaymentCreatesUnknownUsers(t *testing.T) {
	l := ledger{}
	l.applyPayments([]Payment{{Payer: " Z ", Payee: "w", Amount: 5, Status: StatusVerified}})

	require.Contains(t, l, "z")
	assert.Equal(t, 5.0, l["z"].balance)
	assert.Equal(t, -5.0, l["w"].balance)
	assert.False(t, l["z"].participant)
}

func TestCalculateBalances_PaymentOnlyUsersAreNotParticipants(t *testing.T) {
	expenses := []Expense{{Amount: 10, Payer: "a", Splits: Splits{{"b", 10}}}}
	payments := []Payment{{Payer: "c", Payee: "d", Amount: 3, Status: StatusVerified}}

	result := CalculateBalances(expenses, "a", nil, payments)

	assert.Equal(t, 2, result.Summary.ParticipantCount)
	assert.Equal(t, map[string]float64{"b": -10, "c": 3, "d": -3}, result.Balances)
}
