package services

import (
	"context"
	"fmt"
	"time"

	"ledgerview/internal/core"
	"ledgerview/internal/results"

	"github.com/shopspring/decimal"
)

// ReportStore is the read side of the ledger.
type ReportStore interface {
	CategoryTotals(ctx context.Context, period core.Period, now time.Time) ([]core.CategoryAmount, error)
	Trend(ctx context.Context, period core.Period, now time.Time) ([]core.TrendPoint, error)
	MonthSummary(ctx context.Context, now time.Time) (core.MonthSummary, error)
	RecentExpenses(ctx context.Context, limit int) ([]core.Expense, error)
}

// Overview is the dashboard header plus the month's top categories.
type Overview struct {
	Year     int                  `json:"year"`
	Month    int                  `json:"month"`
	Total    decimal.Decimal      `json:"total"`
	Count    int                  `json:"count"`
	Category *results.QueryResult `json:"-"`
}

// ReportService turns ledger queries into query results for the dispatcher.
// Category percentages are never filled in here; the aggregator derives them.
type ReportService struct {
	store ReportStore
	now   func() time.Time
}

func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store, now: time.Now}
}

func (s *ReportService) Overview(ctx context.Context) (Overview, error) {
	summary, err := s.store.MonthSummary(ctx, s.now())
	if err != nil {
		return Overview{}, fmt.Errorf("month summary: %w", err)
	}
	total := summary.Total.Decimal()
	return Overview{
		Year:  summary.Year,
		Month: summary.Month,
		Total: total,
		Count: summary.Count,
		Category: results.New(results.CategoriesPayload{
			PeriodLabel: core.PeriodMonth.Label(),
			Total:       results.NumberOf(total),
			Categories:  rawSlices(summary.TopCategories),
		}),
	}, nil
}

func (s *ReportService) Trends(ctx context.Context, period core.Period) (*results.QueryResult, error) {
	points, err := s.store.Trend(ctx, period, s.now())
	if err != nil {
		return nil, fmt.Errorf("trend %s: %w", period, err)
	}
	data := make([]results.TimeSeriesPoint, 0, len(points))
	for _, p := range points {
		data = append(data, results.TimeSeriesPoint{Date: p.Date, Amount: results.NumberOf(p.Amount.Decimal())})
	}
	return results.New(results.TrendsPayload{PeriodLabel: period.Label(), Data: data}), nil
}

func (s *ReportService) Categories(ctx context.Context, period core.Period) (*results.QueryResult, error) {
	totals, err := s.store.CategoryTotals(ctx, period, s.now())
	if err != nil {
		return nil, fmt.Errorf("category totals %s: %w", period, err)
	}
	var sum core.Money
	for _, c := range totals {
		sum.Cents += c.Amount.Cents
	}
	return results.New(results.CategoriesPayload{
		PeriodLabel: period.Label(),
		Total:       results.NumberOf(sum.Decimal()),
		Categories:  rawSlices(totals),
	}), nil
}

func (s *ReportService) Recent(ctx context.Context, limit int) (*results.QueryResult, error) {
	expenses, err := s.store.RecentExpenses(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent expenses: %w", err)
	}
	items := make([]results.ListItem, 0, len(expenses))
	for _, e := range expenses {
		items = append(items, results.ListItem{
			Description: e.Description,
			Amount:      results.NumberOf(e.Amount.Decimal()),
			Category:    e.Category,
			Date:        e.Date.String(),
		})
	}
	return results.New(results.ListPayload{Items: items}), nil
}

func rawSlices(totals []core.CategoryAmount) []results.RawCategorySlice {
	out := make([]results.RawCategorySlice, 0, len(totals))
	for _, c := range totals {
		out = append(out, results.RawCategorySlice{
			Name:  c.Name,
			Value: results.NumberOf(c.Amount.Decimal()),
			Count: c.Count,
		})
	}
	return out
}
