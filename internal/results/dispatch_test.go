package results

import (
	"testing"

	"github.com/shopspring/decimal"
)

func samplePayloads() map[Kind]Payload {
	return map[Kind]Payload{
		KindTable: TablePayload{
			Headers: []string{"category", "total"},
			Rows:    []Row{{{Header: "category", Value: StringScalar("Food")}, {Header: "total", Value: NumberScalar("12.5")}}},
		},
		KindList: ListPayload{Items: []ListItem{{Description: "Coffee", Amount: ParseNumber("3.5")}}},
		KindInsights: InsightsPayload{Sections: []Section{
			{Title: "Top Categories", Content: "Food leads", Items: []string{"Food: $40.00"}},
		}},
		KindText:   TextPayload{Text: "You spent $40 this week."},
		KindTrends: TrendsPayload{Data: []TimeSeriesPoint{{Date: "2024-01-01", Amount: ParseNumber("10")}}},
		KindCategories: CategoriesPayload{
			Total:      ParseNumber("10"),
			Categories: []RawCategorySlice{{Name: "Food", Value: ParseNumber("10"), Count: 1}},
		},
	}
}

func TestDispatch_EveryKindHasAWidget(t *testing.T) {
	samples := samplePayloads()
	for _, k := range Kinds() {
		p, ok := samples[k]
		if !ok {
			t.Errorf("no sample payload for kind %q", k)
			continue
		}
		in := Dispatch(New(p))
		if in.Widget == WidgetEmpty || in.Widget == WidgetAwaiting {
			t.Errorf("kind %q dispatched to %q", k, in.Widget)
		}
		if in.Kind != k {
			t.Errorf("kind %q instruction carries kind %q", k, in.Kind)
		}
		if in.Empty {
			t.Errorf("kind %q rendered empty for a complete payload", k)
		}
	}
}

func TestDispatch_Nil(t *testing.T) {
	in := Dispatch(nil)
	if in.Widget != WidgetAwaiting {
		t.Errorf("Widget = %q, want awaiting", in.Widget)
	}
	if in.Message != MessageAwaiting {
		t.Errorf("Message = %q", in.Message)
	}
}

func TestDispatch_FailsClosed(t *testing.T) {
	tests := []struct {
		name string
		r    *QueryResult
	}{
		{"unknown kind", &QueryResult{Kind: "pie"}},
		{"unknown kind with payload", &QueryResult{Kind: "pie", Payload: TextPayload{Text: "x"}}},
		{"nil payload", &QueryResult{Kind: KindTable}},
		{"mismatched payload", &QueryResult{Kind: KindTable, Payload: TextPayload{Text: "x"}}},
		{"zero value", &QueryResult{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Dispatch(tt.r)
			if in.Widget != WidgetEmpty {
				t.Errorf("Widget = %q, want empty", in.Widget)
			}
			if in.Message != MessageNoData {
				t.Errorf("Message = %q", in.Message)
			}
		})
	}
}

func TestDispatch_EmptySections(t *testing.T) {
	tests := []struct {
		payload Payload
		widget  Widget
		message string
	}{
		{TablePayload{}, WidgetTable, MessageNoRows},
		{TablePayload{Headers: []string{"a"}}, WidgetTable, MessageNoRows},
		{ListPayload{}, WidgetList, MessageNoExpenses},
		{InsightsPayload{}, WidgetInsights, MessageNoData},
		{TextPayload{}, WidgetText, MessageNoData},
		{TrendsPayload{}, WidgetTrends, MessageNoPeriodData},
		{CategoriesPayload{Total: ParseNumber("0")}, WidgetCategories, MessageNoPeriodData},
	}
	for _, tt := range tests {
		t.Run(string(tt.widget), func(t *testing.T) {
			in := Dispatch(New(tt.payload))
			if in.Widget != tt.widget || !in.Empty || in.Message != tt.message {
				t.Errorf("Dispatch = %+v, want empty %s with %q", in, tt.widget, tt.message)
			}
		})
	}
}

func TestDispatch_TableClassifiesCells(t *testing.T) {
	p := TablePayload{
		Headers: []string{"category", "total", "count"},
		Rows: []Row{
			{
				{Header: "count", Value: NumberScalar("4")},
				{Header: "category", Value: StringScalar("Food")},
				{Header: "total", Value: StringScalar("12.50")},
				{Header: "note", Value: StringScalar("weekly")},
			},
			{{Header: "category", Value: StringScalar("Rent")}},
		},
	}
	in := Dispatch(New(p))
	if in.Table == nil {
		t.Fatal("Table view missing")
	}
	wantHeaders := []string{"category", "total", "count", "note"}
	if len(in.Table.Headers) != len(wantHeaders) {
		t.Fatalf("Headers = %v, want %v", in.Table.Headers, wantHeaders)
	}
	for i, h := range wantHeaders {
		if in.Table.Headers[i] != h {
			t.Errorf("Headers[%d] = %q, want %q", i, in.Table.Headers[i], h)
		}
	}

	first := in.Table.Rows[0]
	if first[0] != (FormattedCell{Kind: CellPlain, Formatted: "Food"}) {
		t.Errorf("category cell = %+v", first[0])
	}
	if first[1] != (FormattedCell{Kind: CellCurrency, Formatted: "$12.50"}) {
		t.Errorf("total cell = %+v", first[1])
	}
	if first[2] != (FormattedCell{Kind: CellPlain, Formatted: "4"}) {
		t.Errorf("count cell = %+v", first[2])
	}
	second := in.Table.Rows[1]
	if len(second) != len(wantHeaders) || second[1].Formatted != "" {
		t.Errorf("short row = %+v", second)
	}
}

func TestDispatch_Trends(t *testing.T) {
	in := Dispatch(New(TrendsPayload{
		PeriodLabel: "Last 7 Days",
		Data:        series("10", "20", "30", "10", "30", "20", "40"),
	}))
	v := in.Trends
	if v == nil || v.Comparison == nil {
		t.Fatalf("trends view = %+v", v)
	}
	if v.Comparison.PreviousTotal != "$60.00" || v.Comparison.CurrentTotal != "$100.00" {
		t.Errorf("totals = %s / %s", v.Comparison.PreviousTotal, v.Comparison.CurrentTotal)
	}
	if v.Comparison.Percent != "66.7" || v.Comparison.ChangeLabel != "↑ 66.7%" {
		t.Errorf("comparison = %+v", v.Comparison)
	}
	if v.Points[6].Height != "100.0" || v.Points[0].Height != "25.0" {
		t.Errorf("heights = %s, %s", v.Points[0].Height, v.Points[6].Height)
	}
}

func TestDispatch_CategoriesDerivesShares(t *testing.T) {
	in := Dispatch(New(CategoriesPayload{
		PeriodLabel: "This Month",
		Total:       ParseNumber("80"),
		Categories: []RawCategorySlice{
			{Name: "Rent", Value: ParseNumber("60"), Count: 1},
			{Name: "Food", Value: ParseNumber("20"), Count: 5},
		},
	}))
	v := in.Categories
	if v == nil {
		t.Fatal("categories view missing")
	}
	if v.Total != "$80.00" {
		t.Errorf("Total = %q", v.Total)
	}
	if !v.Slices[0].Percentage.Equal(decimal.NewFromInt(75)) || v.Slices[1].ShareText != "25.0%" {
		t.Errorf("slices = %+v", v.Slices)
	}
	if !v.Slices[0].Width.Equal(decimal.NewFromInt(75)) {
		t.Errorf("width = %s, want 75", v.Slices[0].Width)
	}
}

func TestDispatch_MalformedListAmountShownVerbatim(t *testing.T) {
	in := Dispatch(New(ListPayload{Items: []ListItem{{Description: "Taxi", Amount: ParseNumber("twelve")}}}))
	if got := in.List.Items[0].Amount; got != "twelve" {
		t.Errorf("Amount = %q, want twelve", got)
	}
}

func TestDispatch_MalformedCategoriesTotalShownVerbatim(t *testing.T) {
	in := Dispatch(New(CategoriesPayload{
		Total:      ParseNumber("lots"),
		Categories: []RawCategorySlice{{Name: "Food", Value: ParseNumber("10")}},
	}))
	if in.Widget != WidgetCategories {
		t.Fatalf("Widget = %q, want categories", in.Widget)
	}
	if got := in.Categories.Total; got != "lots" {
		t.Errorf("Total = %q, want lots", got)
	}
}

func TestDispatch_OversizedNumberCellShownAsSent(t *testing.T) {
	r, err := Decode([]byte(`{"data_type":"table","data":{"headers":["a"],"rows":[{"a":1e200000000}]}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	in := Dispatch(r)
	if in.Widget != WidgetTable {
		t.Fatalf("Widget = %q, want table", in.Widget)
	}
	if got := in.Table.Rows[0][0]; got.Kind != CellPlain || got.Formatted != "1e200000000" {
		t.Errorf("cell = %+v, want plain 1e200000000", got)
	}
}
