package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Jan Month = "Jan"
	Feb Month = "Feb"
	Mar Month = "Mar"
	Apr Month = "Apr"
	May Month = "May"
	Jun Month = "Jun"
	Jul Month = "Jul"
	Aug Month = "Aug"
	Sep Month = "Sep"
	Oct Month = "Oct"
	Nov Month = "Nov"
	Dec Month = "Dec"
)

const (
	Prevention      Category = "Prevention"
	Appraisal       Category = "Appraisal"
	InternalFailure Category = "Internal Failure"
	ExternalFailure Category = "External Failure"
)

type (
	// Month is one of the twelve calendar month abbreviations (Jan..Dec).
	Month string

	// Category is one of the four fixed quality-cost categories.
	Category string

	// CostRecord is a single quality-cost line item. Identity is structural:
	// two records are the same record iff all four fields match.
	CostRecord struct {
		Month       Month
		Category    Category
		Cost        Money
		Description string
	}

	Money struct {
		Cents int64
	}

	// Table is the ordered record table. Insertion order is preserved for
	// the first occurrence of each record; duplicates collapse to one.
	Table []CostRecord
)

// MonthOrder lists the months in calendar sequence.
var MonthOrder = [12]Month{Jan, Feb, Mar, Apr, May, Jun, Jul, Aug, Sep, Oct, Nov, Dec}

// Categories lists the four fixed categories in reporting order.
var Categories = [4]Category{Prevention, Appraisal, InternalFailure, ExternalFailure}

var (
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// Index returns the 1-based calendar position of the month, or 0 if unknown.
func (m Month) Index() int {
	for i, mo := range MonthOrder {
		if m == mo {
			return i + 1
		}
	}
	return 0
}

func (m Month) Validate() error {
	if m.Index() == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidMonth, string(m))
	}
	return nil
}

// ParseMonth accepts a month abbreviation, case-insensitively.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	for _, m := range MonthOrder {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
}

func (c Category) Validate() error {
	for _, cat := range Categories {
		if c == cat {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidCategory, string(c))
}

// ParseCategory accepts a category label, case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r CostRecord) Validate() error {
	if err := r.Month.Validate(); err != nil {
		return err
	}
	if err := r.Category.Validate(); err != nil {
		return err
	}
	if err := r.Cost.Validate(); err != nil {
		return err
	}
	// Description is free text; blank is allowed, matching the data files the
	// dashboard ingests.
	return nil
}

// Append returns the de-duplicated union of the table and the given records.
// Existing rows keep their positions; new rows follow in input order. The
// receiver is not modified.
func (t Table) Append(records ...CostRecord) Table {
	out := make(Table, 0, len(t)+len(records))
	seen := make(map[CostRecord]struct{}, len(t)+len(records))
	for _, r := range t {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	for _, r := range records {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Dedupe collapses field-wise identical rows, keeping first occurrences.
func (t Table) Dedupe() Table {
	return Table(nil).Append(t...)
}

// Equal reports whether both tables hold the same rows in the same order.
func (t Table) Equal(other Table) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// TotalCents sums the cost of every row.
func (t Table) TotalCents() int64 {
	var total int64
	for _, r := range t {
		total += r.Cost.Cents
	}
	return total
}
