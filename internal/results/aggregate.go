package results

import "github.com/shopspring/decimal"

// Palette is cycled by rank to give every category a stable color.
var Palette = []string{
	"#7c3aed", "#3b82f6", "#10b981", "#f59e0b",
	"#ef4444", "#ec4899", "#14b8a6", "#6366f1",
}

// CategorySlice is a category after normalization.
type CategorySlice struct {
	Name  string `json:"name"`
	Value Number `json:"value"`
	Count int    `json:"count"`
	// Percentage keeps full precision so that sums stay within tolerance.
	Percentage decimal.Decimal `json:"percentage"`
	// Rank is the input position, never the magnitude order.
	Rank  int    `json:"rank"`
	Color string `json:"color"`
	// Width sizes the summary bar from the raw value and total.
	Width decimal.Decimal `json:"width"`

	ValueText string `json:"value_text"`
	ShareText string `json:"share_text"`
}

// Normalize fills in missing percentages as value/total*100 and assigns ranks
// in input order. A percentage sent by the backend is kept as is; a malformed
// one is treated as missing. With a non-positive total every derived
// percentage is zero.
func Normalize(slices []RawCategorySlice, total decimal.Decimal) []CategorySlice {
	out := make([]CategorySlice, 0, len(slices))
	for i, s := range slices {
		pct := decimal.Zero
		switch {
		case s.Percentage != nil && s.Percentage.Valid():
			pct = s.Percentage.Decimal()
		case total.IsPositive():
			pct = s.Value.Decimal().Div(total).Mul(hundred)
		}
		out = append(out, CategorySlice{
			Name:       s.Name,
			Value:      s.Value,
			Count:      s.Count,
			Percentage: pct,
			Rank:       i,
			Color:      Palette[i%len(Palette)],
			Width:      Scale(s.Value.Decimal(), total),
			ValueText:  s.Value.Currency(),
			ShareText:  pct.StringFixed(1) + "%",
		})
	}
	return out
}
