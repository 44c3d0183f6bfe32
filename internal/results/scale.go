package results

import "github.com/shopspring/decimal"

// Scale returns part as a percentage of whole, clamped to [0, 100]. It is
// computed from raw totals on every call and is 0 when whole <= 0.
func Scale(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	width := part.Div(whole).Mul(hundred)
	switch {
	case width.IsNegative():
		return decimal.Zero
	case width.GreaterThan(hundred):
		return hundred
	}
	return width
}
