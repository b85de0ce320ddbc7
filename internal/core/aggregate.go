package core

// SummarizeByCategory sums cost per category over the table. The result
// always contains exactly the four fixed categories, each >= 0.
func SummarizeByCategory(t Table) CategorySummary {
	s := make(CategorySummary, len(Categories))
	for _, c := range Categories {
		s[c] = Money{}
	}
	for _, r := range t {
		m := s[r.Category]
		m.Cents += r.Cost.Cents
		s[r.Category] = m
	}
	return s
}

// ComputeKPIs derives COGQ, COPQ and their total from a category summary.
func ComputeKPIs(s CategorySummary) KPISnapshot {
	cogq := s[Prevention].Cents + s[Appraisal].Cents
	copq := s[InternalFailure].Cents + s[ExternalFailure].Cents
	return KPISnapshot{
		COGQ:  Money{Cents: cogq},
		COPQ:  Money{Cents: copq},
		Total: Money{Cents: cogq + copq},
	}
}

// TrendByMonth groups cost by month and reindexes into Jan..Dec order.
// Months absent from the table are omitted, not shown as zero: an absent
// month means nothing was recorded, not that zero cost was recorded.
func TrendByMonth(t Table) MonthlyTrend {
	sums := make(map[Month]int64, len(MonthOrder))
	for _, r := range t {
		sums[r.Month] += r.Cost.Cents
	}
	trend := make(MonthlyTrend, 0, len(sums))
	for _, m := range MonthOrder {
		if cents, ok := sums[m]; ok {
			trend = append(trend, TrendPoint{Month: m, Total: Money{Cents: cents}})
		}
	}
	return trend
}

// RecentTrend returns the last n points of the monthly trend in month order.
// This is the tail of whatever months are present, not calendar-relative to
// the current date.
func RecentTrend(t Table, n int) MonthlyTrend {
	trend := TrendByMonth(t)
	if n <= 0 || n >= len(trend) {
		return trend
	}
	return trend[len(trend)-n:]
}

// SelectMonth returns the subset of rows matching the given month, in order.
func SelectMonth(t Table, m Month) Table {
	var out Table
	for _, r := range t {
		if r.Month == m {
			out = append(out, r)
		}
	}
	return out
}

// MonthsPresent lists the months that occur in the table, in calendar order.
func MonthsPresent(t Table) []Month {
	seen := make(map[Month]bool, len(t))
	for _, r := range t {
		seen[r.Month] = true
	}
	var out []Month
	for _, m := range MonthOrder {
		if seen[m] {
			out = append(out, m)
		}
	}
	return out
}
