package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ledgerview/internal/core"
)

var testNow = time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func expense(desc string, cents int64, category, date string) core.Expense {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Expense{Description: desc, Amount: core.Money{Cents: cents}, Category: category, Date: d}
}

func seed(t *testing.T, repo *SQLiteRepository, expenses ...core.Expense) {
	t.Helper()
	for _, e := range expenses {
		if _, err := repo.AddExpense(context.Background(), e); err != nil {
			t.Fatalf("AddExpense(%s): %v", e.Description, err)
		}
	}
}

func TestAddExpense_Validation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.AddExpense(ctx, expense("", 100, "Food", "2024-03-01")); !errors.Is(err, core.ErrEmptyDescription) {
		t.Errorf("empty description err = %v", err)
	}
	if _, err := repo.AddExpense(ctx, expense("Coffee", 0, "Food", "2024-03-01")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero amount err = %v", err)
	}
	id, err := repo.AddExpense(ctx, expense("Coffee", 350, "Food", "2024-03-01"))
	if err != nil || id == 0 {
		t.Fatalf("AddExpense = %d, %v", id, err)
	}
}

func TestRecentExpenses(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo,
		expense("Old", 100, "Food", "2024-01-01"),
		expense("Newest", 200, "", "2024-03-19"),
		expense("Middle", 300, "Rent", "2024-02-01"),
	)

	got, err := repo.RecentExpenses(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentExpenses: %v", err)
	}
	if len(got) != 2 || got[0].Description != "Newest" || got[1].Description != "Middle" {
		t.Fatalf("RecentExpenses = %+v", got)
	}
	if got[0].Source != core.SourcePersonal || got[0].Date.String() != "2024-03-19" {
		t.Errorf("first = %+v", got[0])
	}
}

func TestUpsertExternal_IgnoresDuplicates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	e := expense("[Trip] Dinner", 2500, "Dining", "2024-03-10")
	e.ExternalID = 42
	e.Source = core.SourceSplitwise

	inserted, err := repo.UpsertExternal(ctx, e)
	if err != nil || !inserted {
		t.Fatalf("first UpsertExternal = %v, %v", inserted, err)
	}
	e.Amount.Cents = 9999
	inserted, err = repo.UpsertExternal(ctx, e)
	if err != nil || inserted {
		t.Fatalf("duplicate UpsertExternal = %v, %v", inserted, err)
	}

	got, _ := repo.RecentExpenses(ctx, 10)
	if len(got) != 1 || got[0].Amount.Cents != 2500 || got[0].ExternalID != 42 {
		t.Errorf("stored = %+v", got)
	}

	e.ExternalID = 0
	if _, err := repo.UpsertExternal(ctx, e); err == nil {
		t.Error("missing external id accepted")
	}
}

func TestDeleteExpense(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id, err := repo.AddExpense(ctx, expense("Coffee", 350, "Food", "2024-03-01"))
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteExpense(ctx, id); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if err := repo.DeleteExpense(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestCategoryTotals(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo,
		expense("Lunch", 1200, "Food", "2024-03-15"),
		expense("Dinner", 2800, "Food", "2024-03-18"),
		expense("Rent", 90000, "Rent", "2024-03-01"),
		expense("Gift", 500, "", "2024-03-19"),
		expense("Last month", 7000, "Food", "2024-02-28"),
		expense("Future", 100, "Food", "2024-03-25"),
	)
	ctx := context.Background()

	month, err := repo.CategoryTotals(ctx, core.PeriodMonth, testNow)
	if err != nil {
		t.Fatalf("CategoryTotals: %v", err)
	}
	want := []core.CategoryAmount{
		{Name: "Rent", Amount: core.Money{Cents: 90000}, Count: 1},
		{Name: "Food", Amount: core.Money{Cents: 4000}, Count: 2},
		{Name: "Uncategorized", Amount: core.Money{Cents: 500}, Count: 1},
	}
	if len(month) != len(want) {
		t.Fatalf("CategoryTotals = %+v", month)
	}
	for i := range want {
		if month[i] != want[i] {
			t.Errorf("[%d] = %+v, want %+v", i, month[i], want[i])
		}
	}

	week, err := repo.CategoryTotals(ctx, core.PeriodWeek, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if len(week) != 2 || week[0].Name != "Food" || week[0].Amount.Cents != 4000 {
		t.Errorf("week totals = %+v", week)
	}
}

func TestTrend(t *testing.T) {
	repo := newTestRepo(t)
	seed(t, repo,
		expense("a", 100, "Food", "2024-03-18"),
		expense("b", 250, "Food", "2024-03-15"),
		expense("c", 50, "Fun", "2024-03-18"),
		expense("d", 1000, "Rent", "2023-05-02"),
		expense("e", 400, "Rent", "2023-03-31"),
	)
	ctx := context.Background()

	days, err := repo.Trend(ctx, core.PeriodMonth, testNow)
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}
	if len(days) != 2 || days[0].Date != "2024-03-15" || days[1].Date != "2024-03-18" || days[1].Amount.Cents != 150 {
		t.Errorf("month trend = %+v", days)
	}

	months, err := repo.Trend(ctx, core.PeriodYear, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if len(months) != 2 || months[0].Date != "2023-05" || months[1].Date != "2024-03" {
		t.Errorf("year trend = %+v", months)
	}
}

func TestMonthSummary(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	empty, err := repo.MonthSummary(ctx, testNow)
	if err != nil {
		t.Fatalf("MonthSummary on empty db: %v", err)
	}
	if empty.Total.Cents != 0 || empty.Count != 0 || len(empty.TopCategories) != 0 {
		t.Errorf("empty summary = %+v", empty)
	}

	for i, cat := range []string{"A", "B", "C", "D", "E", "F"} {
		seed(t, repo, expense("x", int64(100*(i+1)), cat, "2024-03-02"))
	}
	s, err := repo.MonthSummary(ctx, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if s.Year != 2024 || s.Month != 3 || s.Count != 6 || s.Total.Cents != 2100 {
		t.Errorf("summary = %+v", s)
	}
	if len(s.TopCategories) != 5 || s.TopCategories[0].Name != "F" {
		t.Errorf("top categories = %+v", s.TopCategories)
	}
}

func TestSyncRuns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.LastSyncRun(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("LastSyncRun on empty db err = %v", err)
	}
	for _, id := range []string{"first", "second"} {
		if err := repo.RecordSyncRun(ctx, SyncRun{RequestID: id, Fetched: 3, Imported: 2, Skipped: 1, FinishedAt: testNow}); err != nil {
			t.Fatalf("RecordSyncRun: %v", err)
		}
	}
	last, err := repo.LastSyncRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last.RequestID != "second" || last.Imported != 2 || !last.FinishedAt.Equal(testNow) {
		t.Errorf("LastSyncRun = %+v", last)
	}
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	// idempotent
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
	v, dirty, err := MigrationVersion(path)
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if v != 2 || dirty {
		t.Errorf("version = %d dirty=%v, want 2 clean", v, dirty)
	}
}
