// Package ingest merges uploaded CSV data and manually entered records into
// the record table. Both entry points yield the same guarantee: the result is
// the de-duplicated union of the existing table and the new rows, with
// insertion order preserved for first occurrences.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"qualitycost/internal/core"

	csvstore "qualitycost/internal/store"
)

// SchemaError reports an uploaded file whose columns do not match the fixed
// four-column layout. The merge aborts entirely; the existing table is
// untouched.
type SchemaError struct {
	Missing    []string
	Unexpected []string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected columns: "+strings.Join(e.Unexpected, ", "))
	}
	if len(parts) == 0 {
		return "upload does not match the Month, Category, Cost, Description layout"
	}
	return "upload schema mismatch: " + strings.Join(parts, "; ")
}

// MergeUpload parses an uploaded CSV stream and returns the merged table.
// The header must carry exactly the Month, Category, Cost, Description
// columns in order; any mismatch is a SchemaError. A row that fails
// validation aborts the whole merge, so there is never a partial ingest.
func MergeUpload(existing core.Table, r io.Reader) (core.Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &SchemaError{Missing: csvstore.Header}
	}
	if err != nil {
		return nil, fmt.Errorf("read upload header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}
	// Fields are resolved by column name, so a reordered but complete header
	// still ingests correctly.
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}

	cr.FieldsPerRecord = len(csvstore.Header)
	var rows []core.CostRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("upload line %d: %w", line, err)
		}
		rec, err := core.ParseRecordFields(row[idx["Month"]], row[idx["Category"]], row[idx["Cost"]], row[idx["Description"]])
		if err != nil {
			return nil, fmt.Errorf("upload line %d: %w", line, err)
		}
		rows = append(rows, rec)
	}

	return existing.Append(rows...), nil
}

// AddRecord constructs a single record from the manual entry form, validates
// it, and returns the merged table.
func AddRecord(existing core.Table, month core.Month, category core.Category, cost core.Money, description string) (core.Table, error) {
	rec := core.CostRecord{
		Month:       month,
		Category:    category,
		Cost:        cost,
		Description: strings.TrimSpace(description),
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return existing.Append(rec), nil
}

func checkHeader(header []string) error {
	want := make(map[string]bool, len(csvstore.Header))
	for _, col := range csvstore.Header {
		want[col] = true
	}
	got := make(map[string]bool, len(header))
	var se SchemaError
	for _, col := range header {
		col = strings.TrimSpace(col)
		got[col] = true
		if !want[col] {
			se.Unexpected = append(se.Unexpected, col)
		}
	}
	for _, col := range csvstore.Header {
		if !got[col] {
			se.Missing = append(se.Missing, col)
		}
	}
	if len(se.Missing) > 0 || len(se.Unexpected) > 0 {
		return &se
	}
	return nil
}
