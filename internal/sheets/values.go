package sheets

import "ledgerview/internal/results"

// ToValues lays an instruction out as spreadsheet rows. The first row is the
// title when there is one. Amounts are written already formatted.
func ToValues(in results.RenderInstruction) [][]any {
	var rows [][]any
	if in.Title != "" {
		rows = append(rows, []any{in.Title})
	}

	switch {
	case in.Table != nil:
		rows = append(rows, stringsRow(in.Table.Headers))
		for _, r := range in.Table.Rows {
			row := make([]any, 0, len(r))
			for _, c := range r {
				row = append(row, c.Formatted)
			}
			rows = append(rows, row)
		}

	case in.List != nil:
		rows = append(rows, []any{"Description", "Amount", "Category", "Date"})
		for _, it := range in.List.Items {
			rows = append(rows, []any{it.Description, it.Amount, it.Category, it.Date})
		}

	case in.Categories != nil:
		if in.Categories.PeriodLabel != "" {
			rows = append(rows, []any{in.Categories.PeriodLabel})
		}
		rows = append(rows, []any{"Category", "Amount", "Share", "Count"})
		for _, s := range in.Categories.Slices {
			rows = append(rows, []any{s.Name, s.ValueText, s.ShareText, s.Count})
		}
		rows = append(rows, []any{"Total", in.Categories.Total})

	case in.Trends != nil:
		if in.Trends.PeriodLabel != "" {
			rows = append(rows, []any{in.Trends.PeriodLabel})
		}
		rows = append(rows, []any{"Date", "Amount"})
		for _, p := range in.Trends.Points {
			rows = append(rows, []any{p.Date, p.Amount})
		}
		if c := in.Trends.Comparison; c != nil {
			rows = append(rows,
				[]any{},
				[]any{"Previous period", c.PreviousTotal},
				[]any{"Current period", c.CurrentTotal},
				[]any{"Change", c.ChangeLabel},
			)
		}

	case in.Insights != nil:
		for _, s := range in.Insights.Sections {
			rows = append(rows, []any{s.Title, s.Content})
			for _, item := range s.Items {
				rows = append(rows, []any{"", item})
			}
		}

	case in.Text != nil:
		rows = append(rows, []any{in.Text.Text})

	default:
		if in.Message != "" {
			rows = append(rows, []any{in.Message})
		}
	}
	return rows
}

func stringsRow(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
