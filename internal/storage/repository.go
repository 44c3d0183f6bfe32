package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ledgerview/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

const uncategorized = "Uncategorized"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// AddExpense stores a personal expense and returns its id.
func (r *SQLiteRepository) AddExpense(ctx context.Context, e core.Expense) (int64, error) {
	if e.Source == "" {
		e.Source = core.SourcePersonal
	}
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("add expense: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (description, amount_cents, category, source, date) VALUES (?, ?, ?, ?, ?)`,
		e.Description, e.Amount.Cents, e.Category, string(e.Source), e.Date.String())
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())

	return id, nil
}

// UpsertExternal stores an imported expense. Expenses whose external id is
// already present are left untouched; the boolean reports whether a row was
// inserted.
func (r *SQLiteRepository) UpsertExternal(ctx context.Context, e core.Expense) (bool, error) {
	if e.ExternalID == 0 {
		return false, fmt.Errorf("upsert expense %q: missing external id", e.Description)
	}
	if err := e.Validate(); err != nil {
		return false, fmt.Errorf("upsert expense %d: %w", e.ExternalID, err)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO expenses (external_id, description, amount_cents, category, source, date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ExternalID, e.Description, e.Amount.Cents, e.Category, string(e.Source), e.Date.String())
	if err != nil {
		return false, fmt.Errorf("insert external expense %d: %w", e.ExternalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// RecentExpenses returns the newest expenses first.
func (r *SQLiteRepository) RecentExpenses(ctx context.Context, limit int) ([]core.Expense, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, COALESCE(external_id, 0), description, amount_cents, category, source, date
		 FROM expenses ORDER BY date DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e      core.Expense
			source string
			date   string
		)
		if err := rows.Scan(&e.ID, &e.ExternalID, &e.Description, &e.Amount.Cents, &e.Category, &source, &date); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Source = core.Source(source)
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("expense %d date %q: %w", e.ID, date, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	return nil
}

// CategoryTotals sums spending per category within the period, largest first.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, period core.Period, now time.Time) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CASE WHEN category = '' THEN ? ELSE category END AS name,
		        SUM(amount_cents) AS total, COUNT(*) AS n
		 FROM expenses
		 WHERE date >= ? AND date <= ?
		 GROUP BY name
		 ORDER BY total DESC, name ASC`,
		uncategorized, sinceDate(period, now), today(now))
	if err != nil {
		return nil, fmt.Errorf("query category totals: %w", err)
	}
	defer rows.Close()
	return scanCategories(rows)
}

// Trend returns totals per day (per month for yearly periods) in
// chronological order.
func (r *SQLiteRepository) Trend(ctx context.Context, period core.Period, now time.Time) ([]core.TrendPoint, error) {
	bucket := "date"
	if period == core.PeriodYear {
		bucket = "substr(date, 1, 7)"
	}
	query := fmt.Sprintf(
		`SELECT %s AS bucket, SUM(amount_cents)
		 FROM expenses
		 WHERE date >= ? AND date <= ?
		 GROUP BY bucket
		 ORDER BY bucket ASC`, bucket)

	rows, err := r.db.QueryContext(ctx, query, sinceDate(period, now), today(now))
	if err != nil {
		return nil, fmt.Errorf("query trend: %w", err)
	}
	defer rows.Close()

	var out []core.TrendPoint
	for rows.Next() {
		var p core.TrendPoint
		if err := rows.Scan(&p.Date, &p.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan trend point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MonthSummary returns the totals of the calendar month containing now.
func (r *SQLiteRepository) MonthSummary(ctx context.Context, now time.Time) (core.MonthSummary, error) {
	now = now.UTC()
	summary := core.MonthSummary{Year: now.Year(), Month: int(now.Month())}
	prefix := now.Format("2006-01")

	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*) FROM expenses WHERE substr(date, 1, 7) = ?`,
		prefix).Scan(&summary.Total.Cents, &summary.Count)
	if err != nil {
		return summary, fmt.Errorf("query month total: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT CASE WHEN category = '' THEN ? ELSE category END AS name,
		        SUM(amount_cents) AS total, COUNT(*) AS n
		 FROM expenses
		 WHERE substr(date, 1, 7) = ?
		 GROUP BY name
		 ORDER BY total DESC, name ASC
		 LIMIT 5`, uncategorized, prefix)
	if err != nil {
		return summary, fmt.Errorf("query top categories: %w", err)
	}
	defer rows.Close()

	if summary.TopCategories, err = scanCategories(rows); err != nil {
		return summary, err
	}
	return summary, nil
}

func scanCategories(rows *sql.Rows) ([]core.CategoryAmount, error) {
	var out []core.CategoryAmount
	for rows.Next() {
		var c core.CategoryAmount
		if err := rows.Scan(&c.Name, &c.Amount.Cents, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func sinceDate(p core.Period, now time.Time) string {
	return p.Since(now).Format(time.DateOnly)
}

func today(now time.Time) string {
	return now.UTC().Format(time.DateOnly)
}
