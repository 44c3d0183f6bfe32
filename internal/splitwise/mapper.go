package splitwise

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ledgerview/internal/core"

	"github.com/shopspring/decimal"
)

// ErrSkipped marks expenses that must not be imported.
var ErrSkipped = errors.New("expense skipped")

// RatesToUSD are fixed approximate conversion rates. Unknown currencies are
// imported at 1:1.
var RatesToUSD = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"INR": decimal.RequireFromString("0.012"),
	"EUR": decimal.RequireFromString("1.08"),
	"GBP": decimal.RequireFromString("1.27"),
	"CAD": decimal.RequireFromString("0.73"),
}

// MapExpense converts e into a ledger expense holding userID's owed share in
// USD. When userID is 0 the full cost is used. Deleted expenses, payments,
// expenses the user is not part of and zero shares yield ErrSkipped.
func MapExpense(e Expense, userID int64, groupName string) (core.Expense, error) {
	if e.DeletedAt != nil && *e.DeletedAt != "" {
		return core.Expense{}, fmt.Errorf("expense %d deleted: %w", e.ID, ErrSkipped)
	}
	if e.Payment {
		return core.Expense{}, fmt.Errorf("expense %d is a payment: %w", e.ID, ErrSkipped)
	}

	amount, err := owedAmount(e, userID)
	if err != nil {
		return core.Expense{}, err
	}
	if !amount.IsPositive() {
		return core.Expense{}, fmt.Errorf("expense %d has no share: %w", e.ID, ErrSkipped)
	}

	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		desc = "No description"
	}

	currency := strings.ToUpper(strings.TrimSpace(e.CurrencyCode))
	if currency != "" && currency != "USD" {
		rate, ok := RatesToUSD[currency]
		if !ok {
			rate = decimal.NewFromInt(1)
		}
		desc = fmt.Sprintf("%s (%s %s)", desc, currency, amount.StringFixed(2))
		amount = amount.Mul(rate)
	}
	if groupName != "" {
		desc = fmt.Sprintf("[%s] %s", groupName, desc)
	}

	date, err := NormalizeDate(e.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, err)
	}

	category := ""
	if e.Category != nil {
		category = e.Category.Name
	}

	out := core.Expense{
		ExternalID:  e.ID,
		Description: truncate(desc, 200),
		Amount:      core.MoneyFromDecimal(amount),
		Category:    truncate(category, 100),
		Source:      core.SourceSplitwise,
		Date:        date,
	}
	if out.Amount.Cents <= 0 {
		return core.Expense{}, fmt.Errorf("expense %d rounds to zero: %w", e.ID, ErrSkipped)
	}
	return out, nil
}

func owedAmount(e Expense, userID int64) (decimal.Decimal, error) {
	if userID == 0 {
		return parseAmount(e.Cost)
	}
	for _, u := range e.Users {
		if u.UserID == userID {
			return parseAmount(u.OwedShare)
		}
	}
	return decimal.Zero, fmt.Errorf("expense %d: user %d not a participant: %w", e.ID, userID, ErrSkipped)
}

func parseAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := core.ParseDecimal(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// NormalizeDate converts an ISO 8601 timestamp such as 2025-09-22T23:36:37Z
// into a ledger date. Plain YYYY-MM-DD is accepted too.
func NormalizeDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return core.NewDate(y, int(m), d), nil
		}
	}
	return core.Date{}, fmt.Errorf("normalize date %q: %w", s, core.ErrInvalidDate)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	for len(string(r)) > n {
		r = r[:len(r)-1]
	}
	return string(r)
}
