package core

import (
	"errors"
	"strings"
	"time"
)

const (
	SourcePersonal  Source = "personal"
	SourceSplitwise Source = "splitwise"
)

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

type (
	Source string

	// Period selects the window of ledger reports.
	Period string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID          int64
		ExternalID  int64 // Splitwise expense id, 0 for personal entries
		Description string
		Amount      Money
		Category    string // optional
		Source      Source
		Date        Date
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidSource    = errors.New("invalid source")
	ErrInvalidPeriod    = errors.New("invalid period")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s Source) Validate() error {
	switch s {
	case SourcePersonal, SourceSplitwise:
		return nil
	default:
		return ErrInvalidSource
	}
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(e.Category) > 100 {
		return errors.New("category too long (max 100 characters)")
	}
	return e.Source.Validate()
}

// ParsePeriod maps a query parameter to a Period. Empty selects the month.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodMonth, nil
	case PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// Label is the human readable name shown above reports.
func (p Period) Label() string {
	switch p {
	case PeriodWeek:
		return "Last 7 Days"
	case PeriodYear:
		return "Last 12 Months"
	default:
		return "This Month"
	}
}

// Since returns the first day included in the period ending at now.
func (p Period) Since(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	switch p {
	case PeriodWeek:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -7)
	case PeriodYear:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	}
}
