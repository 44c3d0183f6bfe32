// Package core provides the ledger domain types together with money parsing
// and conversion helpers.
//
// Amounts are stored as integer cents; reports hand them over to the result
// engine as decimals.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Bounds on decimal literals accepted from user input and remote payloads.
// Formatting a decimal materializes every digit, so a short literal such as
// "1e200000000" must never get through.
const (
	MaxDecimalLength   = 64
	MaxDecimalExponent = 64
)

// ParseDecimal parses s as a decimal whose text and exponent stay within
// MaxDecimalLength and MaxDecimalExponent. Anything else is ErrInvalidAmount.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > MaxDecimalLength {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %q: %w", s, ErrInvalidAmount)
	}
	if e := d.Exponent(); e > MaxDecimalExponent || e < -MaxDecimalExponent {
		return decimal.Zero, fmt.Errorf("parse %q: exponent out of range: %w", s, ErrInvalidAmount)
	}
	return d, nil
}

// ParseDecimalToCents converts a decimal string to cents, rounding half up.
//
// Only plain unsigned digits with an optional dot or comma separator are
// accepted; zero rounds to an error like any other non-positive amount.
//
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if strings.Trim(s, "0123456789.") != "" || strings.Count(s, ".") > 1 || strings.Trim(s, ".") == "" {
		return 0, ErrInvalidAmount
	}
	d, err := ParseDecimal(s)
	if err != nil {
		return 0, err
	}
	cents := d.Shift(2).Round(0)
	if !cents.IsPositive() || cents.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	return MoneyFromDecimal(d).Cents, nil
}

var maxCents = decimal.NewFromInt(math.MaxInt64)

// Decimal returns the amount in currency units (cents shifted two places).
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// MoneyFromDecimal converts a decimal amount to cents, rounding half away from zero.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Shift(2).Round(0).IntPart()}
}

// String formats the amount with two decimals and a dollar sign, e.g. "$12.30".
func (m Money) String() string {
	return "$" + m.Decimal().StringFixed(2)
}
