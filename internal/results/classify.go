package results

import (
	"strings"

	"github.com/shopspring/decimal"

	"ledgerview/internal/core"
)

// CellKind tells the presentation layer whether a cell is money.
type CellKind string

const (
	CellCurrency CellKind = "currency"
	CellPlain    CellKind = "plain"
)

// FormattedCell is a classified table cell.
type FormattedCell struct {
	Kind      CellKind `json:"kind"`
	Formatted string   `json:"formatted"`
}

// Classify decides whether a single cell is a currency amount.
//
// A cell is currency when it is numeric and its canonical decimal form has a
// fractional part. Payloads carry no column types, so whole-dollar amounts
// such as 50 or "50.00" come out plain, the same as a transaction count.
// Numbers outside the core.ParseDecimal bounds are shown as sent.
func Classify(s Scalar) FormattedCell {
	switch s.Kind() {
	case ScalarNumber:
		d, err := core.ParseDecimal(s.Text())
		if err != nil {
			return plain(s.Text())
		}
		if isFractional(d) {
			return currency(d)
		}
		return plain(d.String())
	case ScalarString:
		d, err := core.ParseDecimal(s.Text())
		if err == nil && isFractional(d) {
			return currency(d)
		}
		return plain(s.Text())
	default:
		return plain(s.Text())
	}
}

func isFractional(d decimal.Decimal) bool {
	return strings.Contains(d.String(), ".")
}

func currency(d decimal.Decimal) FormattedCell {
	return FormattedCell{Kind: CellCurrency, Formatted: "$" + d.StringFixed(2)}
}

func plain(s string) FormattedCell {
	return FormattedCell{Kind: CellPlain, Formatted: s}
}
