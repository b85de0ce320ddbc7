package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"qualitycost/internal/core"
)

func testTable() core.Table {
	return core.Table{
		{Month: core.Jan, Category: core.Prevention, Cost: core.Money{Cents: 10000}, Description: "training session"},
		{Month: core.Jan, Category: core.Appraisal, Cost: core.Money{Cents: 5000}, Description: "audit, external"},
		{Month: core.Feb, Category: core.InternalFailure, Cost: core.Money{Cents: 3000}, Description: "rework"},
	}
}

func TestLoadAbsentFileYieldsEmptyTable(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "quality_data.csv"))
	table, err := s.Load()
	if err != nil {
		t.Fatalf("expected no error for absent file, got %v", err)
	}
	if len(table) != 0 {
		t.Fatalf("expected empty table, got %d rows", len(table))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "quality_data.csv"))
	want := testTable()
	if err := s.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Equal(want) {
		t.Fatalf("round-trip mismatch:\nwant %v\ngot  %v", want, got)
	}
	// The description containing a comma survives quoting.
	if got[1].Description != "audit, external" {
		t.Fatalf("comma description mangled: %q", got[1].Description)
	}
}

func TestRepeatedSaveLoadIsByteStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quality_data.csv")
	s := New(path)
	if err := s.Save(testTable()); err != nil {
		t.Fatalf("save: %v", err)
	}

	// save(load()) applied twice must not drift.
	var contents [][]byte
	for i := 0; i < 2; i++ {
		table, err := s.Load()
		if err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		if err := s.Save(table); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		contents = append(contents, b)
	}
	if string(contents[0]) != string(contents[1]) {
		t.Fatalf("persisted content drifted between no-op save cycles:\n%s\n---\n%s", contents[0], contents[1])
	}
}

func TestLoadBlankDescription(t *testing.T) {
	// Data files written by other tools can leave Description empty; the row
	// is still a valid record.
	path := filepath.Join(t.TempDir(), "quality_data.csv")
	body := "Month,Category,Cost,Description\nJan,Prevention,100.00,\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	table, err := New(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := core.Table{{Month: core.Jan, Category: core.Prevention, Cost: core.Money{Cents: 10000}}}
	if !table.Equal(want) {
		t.Fatalf("expected %v, got %v", want, table)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		body string
	}{
		{"wrong header", "Month,Category,Amount,Description\nJan,Prevention,100,x\n"},
		{"missing header", ""},
		{"bad month", "Month,Category,Cost,Description\nJanuary,Prevention,100,x\n"},
		{"bad cost", "Month,Category,Cost,Description\nJan,Prevention,abc,x\n"},
		{"short row", "Month,Category,Cost,Description\nJan,Prevention\n"},
	}
	for _, tc := range cases {
		path := filepath.Join(dir, tc.name+".csv")
		if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
			t.Fatalf("%s: write: %v", tc.name, err)
		}
		_, err := New(path).Load()
		if err == nil {
			t.Fatalf("%s: expected load error", tc.name)
		}
		var perr *PersistenceError
		if !errors.As(err, &perr) {
			t.Fatalf("%s: expected PersistenceError, got %T", tc.name, err)
		}
		if perr.Op != "load" {
			t.Fatalf("%s: expected load op, got %q", tc.name, perr.Op)
		}
	}
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "quality_data.csv")
	if err := New(path).Save(testTable()); err != nil {
		t.Fatalf("save into missing dir: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file not written: %v", err)
	}
}
