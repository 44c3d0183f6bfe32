package results

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ComparisonReport compares the two positional halves of a trend series.
type ComparisonReport struct {
	PreviousTotal decimal.Decimal `json:"previous_total"`
	CurrentTotal  decimal.Decimal `json:"current_total"`
	Delta         decimal.Decimal `json:"delta"`
	// PercentChange keeps full precision; use PercentDisplay for output.
	PercentChange decimal.Decimal `json:"percent_change"`
	IsIncrease    bool            `json:"is_increase"`
	// HasBaseline is false when the previous half summed to zero, in which
	// case PercentChange is reported as 0 whatever the delta.
	HasBaseline    bool `json:"has_baseline"`
	PreviousPoints int  `json:"previous_points"`
	CurrentPoints  int  `json:"current_points"`
}

// Compare splits series at len/2 without reordering it: for odd lengths the
// previous half is the shorter one (7 points -> 3 + 4). An empty series has no
// comparison and yields nil.
func Compare(series []TimeSeriesPoint) *ComparisonReport {
	if len(series) == 0 {
		return nil
	}
	mid := len(series) / 2
	previous := sumAmounts(series[:mid])
	current := sumAmounts(series[mid:])
	delta := current.Sub(previous)

	report := &ComparisonReport{
		PreviousTotal:  previous,
		CurrentTotal:   current,
		Delta:          delta,
		PercentChange:  decimal.Zero,
		IsIncrease:     delta.IsPositive(),
		PreviousPoints: mid,
		CurrentPoints:  len(series) - mid,
	}
	if previous.IsPositive() {
		report.HasBaseline = true
		report.PercentChange = delta.Div(previous).Mul(hundred)
	}
	return report
}

// PercentDisplay is the percent change rounded to one decimal, e.g. "66.7".
func (r ComparisonReport) PercentDisplay() string {
	return r.PercentChange.StringFixed(1)
}

// ChangeLabel is the short text shown next to the totals: an arrow with the
// absolute percentage, or "new" when spending appeared with no baseline.
func (r ComparisonReport) ChangeLabel() string {
	if !r.HasBaseline && r.IsIncrease {
		return "new"
	}
	arrow := "↓"
	if r.IsIncrease {
		arrow = "↑"
	}
	return arrow + " " + r.PercentChange.Abs().StringFixed(1) + "%"
}

func sumAmounts(points []TimeSeriesPoint) decimal.Decimal {
	total := decimal.Zero
	for _, p := range points {
		total = total.Add(p.Amount.Decimal())
	}
	return total
}
