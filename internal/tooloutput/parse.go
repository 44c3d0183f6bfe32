// Package tooloutput turns the plain-text output of the ledger agent's tools
// into typed query results.
package tooloutput

import (
	"strings"

	"ledgerview/internal/results"
)

// Tool names whose output can be parsed.
const (
	ToolRunQuery = "run_query"
	ToolInsights = "get_spending_insights"
)

const (
	maxRows       = 10
	cellSeparator = " | "
	fieldSep      = ": "
	summaryPrefix = "📊"
)

var expenseFields = map[string]bool{
	"description": true,
	"amount":      true,
	"category":    true,
	"date":        true,
}

// Parse dispatches on the tool name. Unknown tools yield nil.
func Parse(tool, content string) *results.QueryResult {
	switch tool {
	case ToolRunQuery:
		return ParseQuery(content)
	case ToolInsights:
		return ParseInsights(content)
	default:
		return nil
	}
}

func failed(content string) bool {
	return strings.TrimSpace(content) == "" || strings.Contains(content, "Error")
}

// ParseQuery reads "key: value | key: value" rows. Rows that mention any
// expense field become a list, any other rows a table with headers in
// first-seen order. Output without rows is returned as text.
func ParseQuery(content string) *results.QueryResult {
	if failed(content) || strings.Contains(content, "No results") {
		return nil
	}
	if !strings.Contains(content, cellSeparator) {
		return results.New(results.TextPayload{Text: content})
	}

	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > maxRows {
		lines = lines[:maxRows]
	}

	var (
		headers   []string
		seen      = map[string]bool{}
		rows      []results.Row
		isExpense bool
	)
	for _, line := range lines {
		var row results.Row
		for _, part := range strings.Split(line, cellSeparator) {
			key, val, ok := strings.Cut(part, fieldSep)
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			if !seen[key] {
				seen[key] = true
				headers = append(headers, key)
			}
			if expenseFields[strings.ToLower(key)] {
				isExpense = true
			}
			row = append(row, results.Cell{Header: key, Value: results.StringScalar(strings.TrimSpace(val))})
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return results.New(results.TextPayload{Text: content})
	}
	if isExpense {
		return results.New(toList(rows))
	}
	return results.New(results.TablePayload{Headers: headers, Rows: rows})
}

func toList(rows []results.Row) results.ListPayload {
	items := make([]results.ListItem, 0, len(rows))
	for _, row := range rows {
		amount := field(row, "amount")
		if amount == "" {
			amount = "0"
		}
		items = append(items, results.ListItem{
			Description: field(row, "description"),
			Amount:      results.ParseNumber(strings.TrimPrefix(amount, "$")),
			Category:    field(row, "category"),
			Date:        field(row, "date"),
		})
	}
	return results.ListPayload{Items: items}
}

// field looks a key up case-insensitively.
func field(row results.Row, key string) string {
	for _, c := range row {
		if strings.EqualFold(c.Header, key) {
			return c.Value.Text()
		}
	}
	return ""
}

// ParseInsights reads a report made of "**Title**" lines, bullet lines and
// prose. Consecutive prose lines of a section are joined with newlines. A
// report without any title is returned as text.
func ParseInsights(content string) *results.QueryResult {
	if failed(content) {
		return nil
	}

	var (
		sections []results.Section
		current  *results.Section
	)
	flush := func() {
		if current != nil {
			sections = append(sections, *current)
		}
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case len(line) > 4 && strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**"):
			flush()
			current = &results.Section{Title: strings.TrimSpace(strings.Trim(line, "*"))}
		case strings.HasPrefix(line, "•") || strings.HasPrefix(line, "- "):
			if current != nil {
				item := strings.TrimPrefix(strings.TrimPrefix(line, "•"), "- ")
				current.Items = append(current.Items, strings.TrimSpace(item))
			}
		case current != nil && !strings.HasPrefix(line, summaryPrefix):
			if current.Content != "" {
				current.Content += "\n"
			}
			current.Content += line
		}
	}
	flush()

	if len(sections) == 0 {
		return results.New(results.TextPayload{Text: content})
	}
	return results.New(results.InsightsPayload{Sections: sections})
}
