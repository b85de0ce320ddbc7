// Package store persists the record table to a flat CSV file.
//
// The file is the CSV-equivalent of the in-memory table: a required
// Month,Category,Cost,Description header followed by one row per record,
// UTF-8, comma-separated. Every save rewrites the whole file; there is no
// append path and no atomic rename, per the single-user persistence contract.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"qualitycost/internal/core"
)

// Header is the fixed column layout of the persisted file.
var Header = []string{"Month", "Category", "Cost", "Description"}

// PersistenceError wraps a load/save failure. It is not recovered anywhere:
// the current interaction halts, and at startup it is fatal.
type PersistenceError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Store reads and writes the record table at a fixed path.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads the persisted table. A missing file yields an empty table; any
// other read or parse failure yields a PersistenceError with no recovery
// path for the caller.
func (s *Store) Load() (core.Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("Data file absent, starting with empty table", "path", s.path)
			return core.Table{}, nil
		}
		return nil, &PersistenceError{Op: "load", Path: s.path, Err: err}
	}
	defer f.Close()

	table, err := readTable(f)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: s.path, Err: err}
	}
	slog.Info("Loaded record table", "path", s.path, "records", len(table))
	return table, nil
}

// Save overwrites the persisted file with the full table contents. A crash
// mid-write can corrupt the file; the single-user contract accepts that.
func (s *Store) Save(t core.Table) error {
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &PersistenceError{Op: "save", Path: s.path, Err: err}
		}
	}
	f, err := os.Create(s.path)
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	if err := writeTable(f, t); err != nil {
		f.Close()
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	slog.Debug("Saved record table", "path", s.path, "records", len(t))
	return nil
}

func readTable(r io.Reader) (core.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range Header {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected header %v, want %v", header, Header)
		}
	}

	table := core.Table{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rec, err := core.ParseRecordFields(row[0], row[1], row[2], row[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		table = append(table, rec)
	}
	return table, nil
}

func writeTable(w io.Writer, t core.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range t {
		row := []string{string(r.Month), string(r.Category), r.Cost.String(), r.Description}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
