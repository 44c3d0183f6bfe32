package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
	Count  int
}

// TrendPoint is the total spent on one day (or month, for yearly trends).
type TrendPoint struct {
	Date   string
	Amount Money
}

// MonthSummary is the compact overview of the current month.
type MonthSummary struct {
	Year          int
	Month         int // 1-12
	Total         Money
	Count         int
	TopCategories []CategoryAmount
}
