// Package results classifies query result payloads and derives the metrics
// the presentation layer needs: cell formatting, category shares, period
// comparisons and bar widths.
//
// Everything here is a pure function of its input. Malformed payloads degrade
// to empty or zeroed output instead of errors.
package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Kind is the discriminant of a QueryResult.
type Kind string

const (
	KindTable      Kind = "table"
	KindList       Kind = "list"
	KindInsights   Kind = "insights"
	KindText       Kind = "text"
	KindTrends     Kind = "trends"
	KindCategories Kind = "categories"
)

// Kinds lists every kind the dispatcher knows about.
func Kinds() []Kind {
	return []Kind{KindTable, KindList, KindInsights, KindText, KindTrends, KindCategories}
}

// Known reports whether k is one of Kinds.
func (k Kind) Known() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Payload is implemented only by the payload types of this package.
type Payload interface {
	kind() Kind
}

// QueryResult is one tagged result. Payload is nil when the backend sent no
// data or data that does not fit the kind.
type QueryResult struct {
	Kind    Kind
	Payload Payload
}

type (
	TablePayload struct {
		Headers []string `json:"headers"`
		Rows    []Row    `json:"rows"`
	}

	ListPayload struct {
		Items []ListItem `json:"items"`
	}

	ListItem struct {
		Description string `json:"description"`
		Amount      Number `json:"amount"`
		Category    string `json:"category,omitempty"`
		Date        string `json:"date,omitempty"`
	}

	InsightsPayload struct {
		Sections []Section `json:"sections"`
	}

	Section struct {
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Items   []string `json:"items,omitempty"`
	}

	TextPayload struct {
		Text string `json:"text"`
	}

	TrendsPayload struct {
		PeriodLabel string            `json:"period_label,omitempty"`
		Data        []TimeSeriesPoint `json:"data"`
	}

	// TimeSeriesPoint is one chronological point. Date is an opaque label.
	TimeSeriesPoint struct {
		Date   string `json:"date"`
		Amount Number `json:"amount"`
	}

	CategoriesPayload struct {
		PeriodLabel string             `json:"period_label,omitempty"`
		Total       Number             `json:"total"`
		Categories  []RawCategorySlice `json:"categories"`
	}

	// RawCategorySlice is a category as sent by the backend. Percentage is nil
	// when the backend did not compute it.
	RawCategorySlice struct {
		Name       string  `json:"name"`
		Value      Number  `json:"value"`
		Count      int     `json:"count"`
		Percentage *Number `json:"percentage,omitempty"`
	}
)

func (TablePayload) kind() Kind      { return KindTable }
func (ListPayload) kind() Kind       { return KindList }
func (InsightsPayload) kind() Kind   { return KindInsights }
func (TextPayload) kind() Kind       { return KindText }
func (TrendsPayload) kind() Kind     { return KindTrends }
func (CategoriesPayload) kind() Kind { return KindCategories }

// New builds a result whose kind always matches its payload.
func New(p Payload) *QueryResult {
	return &QueryResult{Kind: p.kind(), Payload: p}
}

// UnmarshalJSON tolerates counts sent as floats or numeric strings.
func (c *RawCategorySlice) UnmarshalJSON(b []byte) error {
	var aux struct {
		Name       string  `json:"name"`
		Value      Number  `json:"value"`
		Count      Number  `json:"count"`
		Percentage *Number `json:"percentage"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*c = RawCategorySlice{
		Name:       aux.Name,
		Value:      aux.Value,
		Count:      countOf(aux.Count),
		Percentage: aux.Percentage,
	}
	return nil
}

var maxCount = decimal.NewFromInt(math.MaxInt32)

// countOf truncates n to an int. Negative counts and counts that do not fit
// are zero.
func countOf(n Number) int {
	d := n.Decimal()
	if d.IsNegative() || d.GreaterThan(maxCount) {
		return 0
	}
	return int(d.IntPart())
}

// Cell is one header/value pair of a table row.
type Cell struct {
	Header string
	Value  Scalar
}

// Row keeps the key order of the JSON object it was decoded from.
type Row []Cell

// Get returns the value stored under header.
func (r Row) Get(header string) (Scalar, bool) {
	for _, c := range r {
		if c.Header == header {
			return c.Value, true
		}
	}
	return Scalar{}, false
}

func (r *Row) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*r = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("table row: expected object, got %v", tok)
	}
	row := Row{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var v Scalar
		if err := v.UnmarshalJSON(raw); err != nil {
			return err
		}
		row = append(row, Cell{Header: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = row
	return nil
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Header)
		if err != nil {
			return nil, err
		}
		val, err := c.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
