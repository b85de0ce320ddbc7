package core

import "strings"

// ParseRecordFields builds a validated CostRecord from raw string fields, as
// they arrive from the persisted file or an upload row. This is the single
// validation point for externally sourced rows.
func ParseRecordFields(month, category, cost, description string) (CostRecord, error) {
	m, err := ParseMonth(month)
	if err != nil {
		return CostRecord{}, err
	}
	c, err := ParseCategory(category)
	if err != nil {
		return CostRecord{}, err
	}
	cents, err := ParseDecimalToCents(cost)
	if err != nil {
		return CostRecord{}, err
	}
	r := CostRecord{
		Month:       m,
		Category:    c,
		Cost:        Money{Cents: cents},
		Description: strings.TrimSpace(description),
	}
	if err := r.Validate(); err != nil {
		return CostRecord{}, err
	}
	return r, nil
}
