// Package model defines domain types for finpilot snapshots, projections and decisions.
package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is an amount of money in minor currency units.
type Cents int64

var hundred = decimal.NewFromInt(100)

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Abs returns the absolute value.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// String formats the amount in major units with two decimals, e.g. "-12.50".
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// Dollars formats the amount with a currency sign and thousands separators,
// e.g. "$1,234.56" or "-$12.50".
func (c Cents) Dollars() string {
	neg := c < 0
	abs := c.Abs()
	whole := int64(abs / 100)
	frac := int64(abs % 100)

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, ch := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	fmt.Fprintf(&b, ".%02d", frac)
	return b.String()
}

// CentsFromDecimal rounds a major-unit amount half away from zero to whole cents.
func CentsFromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Mul(hundred).Round(0).IntPart())
}

// ParseCents parses a user-entered amount in major units ("1,250.75", "$40").
func ParseCents(s string) (Cents, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.ReplaceAll(clean, "_", "")
	if clean == "" {
		return 0, fmt.Errorf("parsing amount %q: empty", s)
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return 0, fmt.Errorf("parsing amount %q: more than two decimal places", s)
	}
	return CentsFromDecimal(d), nil
}

// MaxCents returns the larger of a and b.
func MaxCents(a, b Cents) Cents {
	if a > b {
		return a
	}
	return b
}

// MinCents returns the smaller of a and b.
func MinCents(a, b Cents) Cents {
	if a < b {
		return a
	}
	return b
}
