package core

// CategorySummary maps every fixed category to its summed cost. It always
// carries all four category keys; categories with no rows sum to zero.
type CategorySummary map[Category]Money

// KPISnapshot holds the derived quality-cost indicators.
// COGQ = Prevention + Appraisal, COPQ = Internal + External Failure.
type KPISnapshot struct {
	COGQ  Money
	COPQ  Money
	Total Money
}

// TrendPoint is one (month, summed cost) pair of the monthly trend.
type TrendPoint struct {
	Month Month
	Total Money
}

// MonthlyTrend is the month-ordered cost series. Months with no records are
// omitted rather than zero-filled.
type MonthlyTrend []TrendPoint
