package balance

import (
	"fmt"
	"strings"
)

type Validation struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidateExpenseBeforeAdd checks a new expense before it is stored. All
// checks run; every failure is reported.
func ValidateExpenseBeforeAdd(expense Expense) Validation {
	v := Validation{Errors: []string{}, Warnings: []string{}}

	if strings.TrimSpace(expense.Description) == "" {
		v.Errors = append(v.Errors, "description is required")
	}

	amount := expense.Amount.Float()
	if amount <= 0 {
		v.Errors = append(v.Errors, "valid amount is required")
	}

	payer := NormalizeEmail(expense.Payer)
	if payer == "" {
		v.Errors = append(v.Errors, "payer is required")
	}

	if len(expense.Splits) == 0 {
		v.Errors = append(v.Errors, "at least one participant is required")
	}

	if len(expense.Splits) > 0 && expense.Amount != 0 {
		check := checkSplits(expense.Splits, amount)
		if !check.valid {
			v.Errors = append(v.Errors, check.errors...)
		} else {
			// dropped entries did not break the total
			v.Warnings = append(v.Warnings, check.errors...)
			if _, ok := check.splits.Get(payer); payer != "" && !ok {
				v.Warnings = append(v.Warnings, fmt.Sprintf("payer %s is not part of the split and is credited the full amount", payer))
			}
		}
	}

	v.IsValid = len(v.Errors) == 0
	return v
}
