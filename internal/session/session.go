// Package session holds the per-session mutable state: the record table and
// the artifacts cached between interactions (KPI chart image path, last
// generated texts).
//
// State is an explicit object passed to every component rather than a
// process singleton, so additional sessions are a constructor call away.
// Within a session interactions never overlap, but the mutex keeps the state
// safe against stray concurrent readers (chart endpoints, health checks).
package session

import (
	"sync"

	"qualitycost/internal/core"
)

type State struct {
	mu sync.Mutex

	table core.Table

	// Artifacts produced by prior steps, consumed by the report exporter.
	kpiChartPath string
	reportText   string
	reportMonth  core.Month

	// Last generated improvement suggestions, display-only.
	suggestions string
}

func NewState(table core.Table) *State {
	return &State{table: table}
}

// Table returns a copy of the current record table.
func (s *State) Table() core.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(core.Table, len(s.table))
	copy(out, s.table)
	return out
}

func (s *State) SetTable(t core.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t
}

func (s *State) KPIChartPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kpiChartPath
}

func (s *State) SetKPIChartPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kpiChartPath = path
}

// Report returns the last generated report text and its month.
func (s *State) Report() (core.Month, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reportMonth, s.reportText
}

func (s *State) SetReport(month core.Month, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reportMonth = month
	s.reportText = text
}

func (s *State) Suggestions() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suggestions
}

func (s *State) SetSuggestions(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = text
}
