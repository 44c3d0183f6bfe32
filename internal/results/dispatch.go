package results

import "github.com/shopspring/decimal"

// Widget names the presentation component an instruction targets.
type Widget string

const (
	WidgetAwaiting   Widget = "awaiting"
	WidgetEmpty      Widget = "empty"
	WidgetTable      Widget = "table"
	WidgetList       Widget = "list"
	WidgetInsights   Widget = "insights"
	WidgetText       Widget = "text"
	WidgetTrends     Widget = "trends"
	WidgetCategories Widget = "categories"
)

const (
	MessageAwaiting     = "Results will appear here when you ask questions"
	MessageNoData       = "No data available"
	MessageNoPeriodData = "No data available for this period"
	MessageNoExpenses   = "No expenses yet"
	MessageNoRows       = "No results"

	titleResults    = "Query Results"
	titleInsights   = "Insights"
	titleTrends     = "Spending Trends"
	titleCategories = "Spending by Category"
	titleExpenses   = "Recent Expenses"
)

// RenderInstruction tells the presentation layer what to draw. Exactly one of
// the view fields is set for a data widget; none for awaiting and empty.
// Empty marks a known widget whose required data was missing.
type RenderInstruction struct {
	Widget  Widget `json:"widget"`
	Kind    Kind   `json:"kind,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
	Empty   bool   `json:"empty,omitempty"`

	Table      *TableView      `json:"table,omitempty"`
	List       *ListView       `json:"list,omitempty"`
	Insights   *InsightsView   `json:"insights,omitempty"`
	Text       *TextView       `json:"text,omitempty"`
	Trends     *TrendsView     `json:"trends,omitempty"`
	Categories *CategoriesView `json:"categories,omitempty"`
}

type TableView struct {
	Headers []string          `json:"headers"`
	Rows    [][]FormattedCell `json:"rows"`
}

type ListView struct {
	Items []ListItemView `json:"items"`
}

type ListItemView struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category,omitempty"`
	Date        string `json:"date,omitempty"`
}

type InsightsView struct {
	Sections []Section `json:"sections"`
}

type TextView struct {
	Text string `json:"text"`
}

type TrendsView struct {
	PeriodLabel string           `json:"period_label,omitempty"`
	Points      []TrendPointView `json:"points"`
	Comparison  *ComparisonView  `json:"comparison,omitempty"`
}

// TrendPointView is one bar; Height is relative to the largest point.
type TrendPointView struct {
	Date   string `json:"date"`
	Amount string `json:"amount"`
	Height string `json:"height"`
}

type ComparisonView struct {
	Report        ComparisonReport `json:"report"`
	PreviousTotal string           `json:"previous_total"`
	CurrentTotal  string           `json:"current_total"`
	Percent       string           `json:"percent"`
	IsIncrease    bool             `json:"is_increase"`
	ChangeLabel   string           `json:"change_label"`
}

type CategoriesView struct {
	PeriodLabel string          `json:"period_label,omitempty"`
	Total       string          `json:"total"`
	Slices      []CategorySlice `json:"slices"`
}

// Awaiting is the neutral instruction shown before any query completes.
func Awaiting() RenderInstruction {
	return RenderInstruction{Widget: WidgetAwaiting, Message: MessageAwaiting}
}

// Placeholder is shown for results that cannot be dispatched.
func Placeholder() RenderInstruction {
	return RenderInstruction{Widget: WidgetEmpty, Message: MessageNoData}
}

// Dispatch turns a result into a render instruction. It never panics: a nil
// result awaits, and an unknown kind or a payload that does not belong to the
// kind falls back to the placeholder.
func Dispatch(r *QueryResult) RenderInstruction {
	if r == nil {
		return Awaiting()
	}
	if r.Payload == nil || r.Payload.kind() != r.Kind {
		return Placeholder()
	}
	switch p := r.Payload.(type) {
	case TablePayload:
		return dispatchTable(p)
	case ListPayload:
		return dispatchList(p)
	case InsightsPayload:
		return dispatchInsights(p)
	case TextPayload:
		return dispatchText(p)
	case TrendsPayload:
		return dispatchTrends(p)
	case CategoriesPayload:
		return dispatchCategories(p)
	default:
		return Placeholder()
	}
}

func dispatchTable(p TablePayload) RenderInstruction {
	in := RenderInstruction{Widget: WidgetTable, Kind: KindTable, Title: titleResults}
	if len(p.Headers) == 0 || len(p.Rows) == 0 {
		in.Empty = true
		in.Message = MessageNoRows
		return in
	}
	headers := tableHeaders(p)
	view := &TableView{Headers: headers, Rows: make([][]FormattedCell, 0, len(p.Rows))}
	for _, row := range p.Rows {
		cells := make([]FormattedCell, len(headers))
		for i, h := range headers {
			v, _ := row.Get(h)
			cells[i] = Classify(v)
		}
		view.Rows = append(view.Rows, cells)
	}
	in.Table = view
	return in
}

// tableHeaders returns the declared headers followed by any row keys that
// were not declared, in first-seen order.
func tableHeaders(p TablePayload) []string {
	seen := make(map[string]bool, len(p.Headers))
	headers := make([]string, 0, len(p.Headers))
	for _, h := range p.Headers {
		if !seen[h] {
			seen[h] = true
			headers = append(headers, h)
		}
	}
	for _, row := range p.Rows {
		for _, c := range row {
			if !seen[c.Header] {
				seen[c.Header] = true
				headers = append(headers, c.Header)
			}
		}
	}
	return headers
}

func dispatchList(p ListPayload) RenderInstruction {
	in := RenderInstruction{Widget: WidgetList, Kind: KindList, Title: titleExpenses}
	if len(p.Items) == 0 {
		in.Empty = true
		in.Message = MessageNoExpenses
		return in
	}
	view := &ListView{Items: make([]ListItemView, 0, len(p.Items))}
	for _, item := range p.Items {
		view.Items = append(view.Items, ListItemView{
			Description: item.Description,
			Amount:      item.Amount.Currency(),
			Category:    item.Category,
			Date:        item.Date,
		})
	}
	in.List = view
	return in
}

func dispatchInsights(p InsightsPayload) RenderInstruction {
	in := RenderInstruction{Widget: WidgetInsights, Kind: KindInsights, Title: titleInsights}
	if len(p.Sections) == 0 {
		in.Empty = true
		in.Message = MessageNoData
		return in
	}
	in.Insights = &InsightsView{Sections: p.Sections}
	return in
}

func dispatchText(p TextPayload) RenderInstruction {
	in := RenderInstruction{Widget: WidgetText, Kind: KindText, Title: titleResults}
	if p.Text == "" {
		in.Empty = true
		in.Message = MessageNoData
		return in
	}
	in.Text = &TextView{Text: p.Text}
	return in
}

func dispatchTrends(p TrendsPayload) RenderInstruction {
	in := RenderInstruction{Widget: WidgetTrends, Kind: KindTrends, Title: titleTrends}
	if len(p.Data) == 0 {
		in.Empty = true
		in.Message = MessageNoPeriodData
		return in
	}
	peak := decimal.Zero
	for _, pt := range p.Data {
		peak = decimal.Max(peak, pt.Amount.Decimal())
	}
	view := &TrendsView{PeriodLabel: p.PeriodLabel, Points: make([]TrendPointView, 0, len(p.Data))}
	for _, pt := range p.Data {
		view.Points = append(view.Points, TrendPointView{
			Date:   pt.Date,
			Amount: pt.Amount.Currency(),
			Height: Scale(pt.Amount.Decimal(), peak).StringFixed(1),
		})
	}
	if report := Compare(p.Data); report != nil {
		view.Comparison = &ComparisonView{
			Report:        *report,
			PreviousTotal: NumberOf(report.PreviousTotal).Currency(),
			CurrentTotal:  NumberOf(report.CurrentTotal).Currency(),
			Percent:       report.PercentDisplay(),
			IsIncrease:    report.IsIncrease,
			ChangeLabel:   report.ChangeLabel(),
		}
	}
	in.Trends = view
	return in
}

func dispatchCategories(p CategoriesPayload) RenderInstruction {
	in := RenderInstruction{Widget: WidgetCategories, Kind: KindCategories, Title: titleCategories}
	if len(p.Categories) == 0 {
		in.Empty = true
		in.Message = MessageNoPeriodData
		return in
	}
	in.Categories = &CategoriesView{
		PeriodLabel: p.PeriodLabel,
		Total:       p.Total.Currency(),
		Slices:      Normalize(p.Categories, p.Total.Decimal()),
	}
	return in
}
