package balance

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
)

// machineEpsilon is added before rounding so values like 1.005 that are stored
// just below the half-cent still round up.
const machineEpsilon = 2.220446049250313e-16

var (
	nonNumeric   = regexp.MustCompile(`[^\d.-]`)
	leadingFloat = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

// Amount is a currency value. It decodes from a JSON number or from a numeric
// string such as "₹1,250.50"; any other JSON type decodes to zero.
type Amount float64

// Float returns the amount clamped to zero for negative and NaN values.
func (a Amount) Float() float64 {
	v := float64(a)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*a = 0
		return nil
	}

	switch c := b[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(ParseAmount(s))
	case c == '-' || (c >= '0' && c <= '9'):
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return err
		}
		*a = Amount(f).clamped()
	default:
		*a = 0
	}
	return nil
}

func (a Amount) clamped() Amount {
	return Amount(a.Float())
}

// ParseAmount strips every character that is not a digit, '.' or '-' and
// parses the leading decimal number of what remains. Unparseable and negative
// input yields 0.
func ParseAmount(s string) float64 {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	match := leadingFloat.FindString(cleaned)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

// RoundCurrency rounds to two decimals, half away from zero.
func RoundCurrency(v float64) float64 {
	r := math.Round((v+machineEpsilon)*100) / 100
	if r == 0 {
		// avoid -0 leaking into JSON
		return 0
	}
	return r
}

// AmountsMatch reports whether a and b are within Tolerance of each other.
func AmountsMatch(a, b float64) bool {
	return math.Abs(a-b) <= Tolerance
}
