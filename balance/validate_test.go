package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateExpenseBeforeAdd(t *testing.T) {
	tests := []struct {
		name       string
		expense    Expense
		valid      bool
		wantErrors []string
	}{
		{
			name:    "valid",
			expense: Expense{Description: "lunch", Amount: 10, Payer: "a", Splits: Splits{{"a", 5}, {"b", 5}}},
			valid:   true,
		},
		{
			name:       "blank description",
			expense:    Expense{Description: "", Amount: 10, Payer: "a", Splits: Splits{{"a", 10}}},
			wantErrors: []string{"description is required"},
		},
		{
			name:       "whitespace description",
			expense:    Expense{Description: "   ", Amount: 10, Payer: "a", Splits: Splits{{"a", 10}}},
			wantErrors: []string{"description is required"},
		},
		{
			name:       "everything missing",
			expense:    Expense{},
			wantErrors: []string{"description is required", "valid amount is required", "payer is required", "at least one participant is required"},
		},
		{
			name:       "splits do not add up",
			expense:    Expense{Description: "lunch", Amount: 100, Payer: "a", Splits: Splits{{"a", 50}, {"b", 45}}},
			wantErrors: []string{"split total 95.00 does not match expense amount 100.00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateExpenseBeforeAdd(tt.expense)
			assert.Equal(t, tt.valid, v.IsValid)
			if tt.wantErrors == nil {
				assert.Empty(t, v.Errors)
				return
			}
			assert.Equal(t, tt.wantErrors, v.Errors)
		})
	}
}

func TestValidateExpenseBeforeAdd_Warnings(t *testing.T) {
	v := ValidateExpenseBeforeAdd(Expense{
		Description: "taxi",
		Amount:      20,
		Payer:       "A",
		Splits:      Splits{{"b", 20}, {"c", 0}},
	})

	assert.True(t, v.IsValid)
	assert.Empty(t, v.Errors)
	assert.Len(t, v.Warnings, 2)
	assert.Contains(t, v.Warnings[1], "payer a is not part of the split")
}
