package balance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Share is the amount one participant owes for an expense.
type Share struct {
	Participant string `json:"participant"`
	Amount      Amount `json:"amount"`
}

// Splits maps participants to their shares, in insertion order. It encodes
// as a JSON object keyed by participant.
type Splits []Share

// Percentage is one participant's share of an expense in percent.
type Percentage struct {
	Participant string  `json:"participant"`
	Percent     float64 `json:"percent"`
}

// Total sums the shares.
func (s Splits) Total() float64 {
	var total float64
	for _, share := range s {
		total += float64(share.Amount)
	}
	return total
}

// Get returns the share of participant, matched exactly.
func (s Splits) Get(participant string) (float64, bool) {
	for _, share := range s {
		if share.Participant == participant {
			return float64(share.Amount), true
		}
	}
	return 0, false
}

func (s Splits) Participants() []string {
	out := make([]string, 0, len(s))
	for _, share := range s {
		out = append(out, share.Participant)
	}
	return out
}

func (s Splits) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, share := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(share.Participant)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(float64(share.Amount))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the order of its keys, which
// decides who absorbs rounding remainders.
func (s *Splits) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("splits: expected object, got %v", tok)
	}

	out := Splits{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var amount Amount
		if err := dec.Decode(&amount); err != nil {
			return fmt.Errorf("splits: amount for %q: %w", key, err)
		}
		out = append(out, Share{Participant: key, Amount: amount})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = out
	return nil
}

// CreateEqualSplit divides amount evenly between participants. Every
// participant but the last gets the rounded per-head share and the last one
// gets the remainder, so the shares always add up to amount.
// Participants are normalized and duplicates collapse into one share.
func CreateEqualSplit(participants []string, amount float64) (Splits, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: participants are required", ErrInvalidInput)
	}
	if !(amount > 0) {
		return nil, fmt.Errorf("%w: valid amount is required", ErrInvalidInput)
	}
	return equalShares(participants, amount)
}

// CreatePercentageSplit converts percentages of amount into shares. The
// percentages must add up to 100; the last entry absorbs the rounding
// remainder.
func CreatePercentageSplit(percentages []Percentage, amount float64) (Splits, error) {
	if len(percentages) == 0 {
		return nil, fmt.Errorf("%w: percentages are required", ErrInvalidInput)
	}
	if !(amount > 0) {
		return nil, fmt.Errorf("%w: valid amount is required", ErrInvalidInput)
	}

	var totalPercent float64
	seen := make(map[string]struct{}, len(percentages))
	for _, p := range percentages {
		key := NormalizeEmail(p.Participant)
		if key == "" {
			return nil, fmt.Errorf("%w: participant is required", ErrInvalidInput)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate participant %s", ErrInvalidInput, key)
		}
		seen[key] = struct{}{}
		totalPercent += Amount(p.Percent).Float()
	}
	if !AmountsMatch(totalPercent, 100) {
		return nil, fmt.Errorf("%w: percentages must sum to 100%%, got %g%%", ErrInvalidInput, totalPercent)
	}

	splits := make(Splits, 0, len(percentages))
	var assigned float64
	last := len(percentages) - 1
	for _, p := range percentages[:last] {
		share := RoundCurrency(amount * Amount(p.Percent).Float() / 100)
		splits = append(splits, Share{Participant: NormalizeEmail(p.Participant), Amount: Amount(share)})
		assigned += share
	}
	splits = append(splits, Share{
		Participant: NormalizeEmail(percentages[last].Participant),
		Amount:      Amount(RoundCurrency(amount - assigned)),
	})
	return splits, nil
}

func equalShares(participants []string, amount float64) (Splits, error) {
	keys := make([]string, 0, len(participants))
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		key := NormalizeEmail(p)
		if key == "" {
			return nil, fmt.Errorf("%w: participant is required", ErrInvalidInput)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	n := len(keys)
	perHead := RoundCurrency(amount / float64(n))
	splits := make(Splits, 0, n)
	var assigned float64
	for _, key := range keys[:n-1] {
		splits = append(splits, Share{Participant: key, Amount: Amount(perHead)})
		assigned += perHead
	}
	splits = append(splits, Share{Participant: keys[n-1], Amount: Amount(RoundCurrency(amount - assigned))})
	return splits, nil
}

// AutoFixExpenses gives every expense without splits an equal split across
// groupMembers, or across the payer alone when no members are known. Expenses
// that already carry splits are returned unchanged. The input is not modified.
func AutoFixExpenses(expenses []Expense, groupMembers []string) []Expense {
	fixed := make([]Expense, len(expenses))
	for i, expense := range expenses {
		fixed[i] = expense
		if len(expense.Splits) > 0 {
			continue
		}
		amount := expense.Amount.Float()
		if amount <= 0 {
			continue
		}

		participants := groupMembers
		if len(participants) == 0 {
			participants = []string{expense.Payer}
		}
		splits, err := equalShares(participants, amount)
		if err != nil {
			continue
		}
		fixed[i].Splits = splits
		fixed[i].AutoFixed = true
	}
	return fixed
}

type splitCheck struct {
	valid        bool
	errors       []string
	splits       Splits
	participants []string
}

// checkSplits normalizes splits and verifies they add up to total. Entries
// with an empty participant or a non-positive amount are dropped and reported;
// entries that normalize to the same participant are merged.
func checkSplits(splits Splits, total float64) splitCheck {
	result := splitCheck{errors: []string{}}
	if len(splits) == 0 {
		result.errors = append(result.errors, "no splits data available, expense may need to be recreated")
		return result
	}

	merged := Splits{}
	index := make(map[string]int, len(splits))
	var splitTotal float64
	for _, share := range splits {
		key := NormalizeEmail(share.Participant)
		if key == "" {
			result.errors = append(result.errors, fmt.Sprintf("invalid participant: %q", share.Participant))
			continue
		}
		amount := share.Amount.Float()
		if amount <= 0 {
			result.errors = append(result.errors, fmt.Sprintf("invalid split amount for %s: %v", share.Participant, float64(share.Amount)))
			continue
		}

		splitTotal += amount
		if i, ok := index[key]; ok {
			merged[i].Amount += Amount(amount)
			continue
		}
		index[key] = len(merged)
		merged = append(merged, Share{Participant: key, Amount: Amount(amount)})
	}

	if len(merged) == 0 {
		result.errors = append(result.errors, "no valid splits remain")
		return result
	}
	if !AmountsMatch(splitTotal, total) {
		result.errors = append(result.errors, fmt.Sprintf("split total %.2f does not match expense amount %.2f", splitTotal, total))
		return result
	}

	// Shares are kept in cents; the last one takes the rounding residual so
	// the splits add up to the rounded total.
	var prior float64
	last := len(merged) - 1
	for i := range merged[:last] {
		merged[i].Amount = Amount(RoundCurrency(float64(merged[i].Amount)))
		prior += float64(merged[i].Amount)
	}
	rest := RoundCurrency(RoundCurrency(total) - prior)
	if rest <= 0 {
		result.errors = append(result.errors, fmt.Sprintf("split for %s rounds to %.2f", merged[last].Participant, rest))
		return result
	}
	merged[last].Amount = Amount(rest)

	result.valid = true
	result.splits = merged
	result.participants = merged.Participants()
	return result
}

// NormalizeSplits merges splits by participant and rounds them to cents so
// that they add up to the rounded total. It fails when checkSplits would
// reject them.
func NormalizeSplits(splits Splits, total float64) (Splits, error) {
	check := checkSplits(splits, total)
	if !check.valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(check.errors, "; "))
	}
	return check.splits, nil
}
