package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in the smallest currency unit (cents).
type Money int64

const (
	// Cent is the smallest currency unit.
	Cent Money = 1
	// MaxMoney is the largest accepted amount (1,000,000,000,000.00). Sums of
	// two amounts at or below it cannot overflow int64.
	MaxMoney Money = 100_000_000_000_000
)

var (
	centsPerUnit = decimal.NewFromInt(100)
	maxCents     = decimal.NewFromInt(int64(MaxMoney))
)

// ParseMoney parses a decimal string such as "10.01" into cents.
// More than two fractional digits are rejected instead of rounded.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents := d.Mul(centsPerUnit)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("invalid amount %q: at most two decimal places", s)
	}
	if cents.Abs().GreaterThan(maxCents) {
		return 0, fmt.Errorf("invalid amount %q: exceeds %s", s, MaxMoney)
	}
	return Money(cents.IntPart()), nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Display formats the amount for user-facing messages, e.g. "$10.01".
func (m Money) Display() string {
	return "$" + m.String()
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// numeric form, e.g. 10.5
		var n json.Number
		if err2 := json.Unmarshal(data, &n); err2 != nil {
			return fmt.Errorf("amount must be a string or number")
		}
		s = n.String()
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
