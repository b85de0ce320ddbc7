package http

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"qualitycost/internal/charts"
	"qualitycost/internal/core"
	"qualitycost/internal/ingest"
	"qualitycost/internal/insight"
	applog "qualitycost/internal/log"
	"qualitycost/internal/report"
)

// maxUploadBytes caps multipart uploads. CSV files of quality records are
// tiny; anything bigger is a mistake.
const maxUploadBytes = 10 << 20

type indexData struct {
	Months     [12]core.Month
	Categories [4]core.Category
}

type dashboardData struct {
	RecordCount int
	COGQ        string
	COPQ        string
	Total       string
	Breakdown   []breakdownRow
	Suggestions string
}

type breakdownRow struct {
	Category core.Category
	Amount   string
}

type reportPanelData struct {
	Months      []core.Month
	ReportMonth core.Month
	ReportText  string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data := indexData{Months: core.MonthOrder, Categories: core.Categories}
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		ctxlog(r).ErrorContext(r.Context(), "Failed rendering index", applog.FieldError, err)
	}
}

// handleUpload merges an uploaded CSV into the table. A schema or row error
// aborts the whole merge and leaves the stored table untouched.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeAlert(w, http.StatusBadRequest, "Could not read the uploaded file.")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeAlert(w, http.StatusBadRequest, "Select a CSV file to upload.")
		return
	}
	defer file.Close()

	existing := s.state.Table()
	merged, err := ingest.MergeUpload(existing, file)
	if err != nil {
		var se *ingest.SchemaError
		if errors.As(err, &se) {
			writeAlert(w, http.StatusUnprocessableEntity, se.Error())
			return
		}
		writeAlert(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.Save(merged); err != nil {
		ctxlog(r).ErrorContext(r.Context(), "Failed saving merged table", applog.FieldError, err)
		writeAlert(w, http.StatusInternalServerError, "Could not save the data file.")
		return
	}
	s.state.SetTable(merged)

	added := len(merged) - len(existing)
	ctxlog(r).InfoContext(r.Context(), "Upload merged",
		applog.FieldRecordCount, len(merged), "added", added)

	w.Header().Set("HX-Trigger", "records-changed")
	writeNotice(w, fmt.Sprintf("Upload merged: %d new record(s), %d total.", added, len(merged)))
}

// handleAddRecord appends a single manually entered record.
func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeAlert(w, http.StatusBadRequest, "Could not read the form.")
		return
	}

	rec, err := core.ParseRecordFields(
		sanitizeInput(r.FormValue("month")),
		sanitizeInput(r.FormValue("category")),
		sanitizeInput(r.FormValue("cost")),
		sanitizeInput(r.FormValue("description")),
	)
	if err != nil {
		writeAlert(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	existing := s.state.Table()
	merged, err := ingest.AddRecord(existing, rec.Month, rec.Category, rec.Cost, rec.Description)
	if err != nil {
		writeAlert(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.Save(merged); err != nil {
		ctxlog(r).ErrorContext(r.Context(), "Failed saving table after add", applog.FieldError, err)
		writeAlert(w, http.StatusInternalServerError, "Could not save the data file.")
		return
	}
	s.state.SetTable(merged)

	if len(merged) == len(existing) {
		w.Header().Set("HX-Trigger", "records-changed")
		writeNotice(w, "Record already present; table unchanged.")
		return
	}

	ctxlog(r).InfoContext(r.Context(), "Record added",
		applog.FieldMonth, string(rec.Month), applog.FieldCategory, string(rec.Category), applog.FieldCostCents, rec.Cost.Cents)

	w.Header().Set("HX-Trigger", "records-changed")
	writeNotice(w, "Record added.")
}

// handleDashboard renders the KPI tiles and chart panel. Aggregates are
// recomputed from the table on every render, never cached.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	table := s.state.Table()
	if len(table) == 0 {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<div class="empty-state">No records yet. Upload a CSV or add a record to see the dashboard.</div>`)
		return
	}

	summary := core.SummarizeByCategory(table)
	kpis := core.ComputeKPIs(summary)

	// Rasterize the KPI chart to disk so the PDF exporter can embed it later.
	if path, err := s.renderer.WriteKPIChart(kpis); err != nil {
		ctxlog(r).WarnContext(r.Context(), "Failed writing KPI chart image", applog.FieldError, err)
	} else {
		s.state.SetKPIChartPath(path)
	}

	data := dashboardData{
		RecordCount: len(table),
		COGQ:        rupees(kpis.COGQ),
		COPQ:        rupees(kpis.COPQ),
		Total:       rupees(kpis.Total),
		Suggestions: s.state.Suggestions(),
	}
	for _, c := range core.Categories {
		data.Breakdown = append(data.Breakdown, breakdownRow{Category: c, Amount: rupees(summary[c])})
	}

	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		ctxlog(r).ErrorContext(r.Context(), "Failed rendering dashboard", applog.FieldError, err)
	}
}

// handleReportPanel renders the monthly report controls. The month selector
// only offers months that actually occur in the table.
func (s *Server) handleReportPanel(w http.ResponseWriter, r *http.Request) {
	table := s.state.Table()
	month, text := s.state.Report()
	data := reportPanelData{
		Months:      core.MonthsPresent(table),
		ReportMonth: month,
		ReportText:  text,
	}
	if err := s.templates.ExecuteTemplate(w, "report_panel.html", data); err != nil {
		ctxlog(r).ErrorContext(r.Context(), "Failed rendering report panel", applog.FieldError, err)
	}
}

func (s *Server) handleKPIChart(w http.ResponseWriter, r *http.Request) {
	kpis := core.ComputeKPIs(core.SummarizeByCategory(s.state.Table()))
	s.serveChart(w, r, func() ([]byte, error) { return s.renderer.KPIBar(kpis) })
}

func (s *Server) handleBreakdownChart(w http.ResponseWriter, r *http.Request) {
	summary := core.SummarizeByCategory(s.state.Table())
	s.serveChart(w, r, func() ([]byte, error) { return s.renderer.CategoryPie(summary) })
}

func (s *Server) handleTrendChart(w http.ResponseWriter, r *http.Request) {
	trend := core.TrendByMonth(s.state.Table())
	s.serveChart(w, r, func() ([]byte, error) { return s.renderer.TrendLine(trend) })
}

func (s *Server) serveChart(w http.ResponseWriter, r *http.Request, render func() ([]byte, error)) {
	png, err := render()
	if err != nil {
		if errors.Is(err, charts.ErrNoData) {
			http.Error(w, "no records to chart", http.StatusNotFound)
			return
		}
		ctxlog(r).ErrorContext(r.Context(), "Failed rendering chart", applog.FieldPath, r.URL.Path, applog.FieldError, err)
		http.Error(w, "chart rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// handleSuggestions requests improvement suggestions from the LLM. On failure
// the previous suggestions are kept; only the error is shown.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	table := s.state.Table()
	if len(table) == 0 {
		writeAlert(w, http.StatusUnprocessableEntity, "Add some records before requesting suggestions.")
		return
	}

	prompt := insight.BuildSuggestionPrompt(core.SummarizeByCategory(table))
	text, err := s.generator.Complete(r.Context(), prompt)
	if err != nil {
		ctxlog(r).ErrorContext(r.Context(), "Suggestion generation failed", applog.FieldError, err)
		writeAlert(w, http.StatusBadGateway, "Could not generate suggestions: "+err.Error())
		return
	}

	// Models bullet with asterisks; swap for a typographic bullet.
	text = strings.ReplaceAll(text, "*", "•")
	s.state.SetSuggestions(text)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<div class="suggestions"><h3>Improvement Suggestions</h3><p class="prewrap">%s</p></div>`,
		template.HTMLEscapeString(text))
}

// handleGenerateReport requests the monthly report text from the LLM and
// caches it in the session for the PDF exporter.
func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeAlert(w, http.StatusBadRequest, "Could not read the form.")
		return
	}
	month, err := core.ParseMonth(sanitizeInput(r.FormValue("month")))
	if err != nil {
		writeAlert(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	table := s.state.Table()
	monthRows := core.SelectMonth(table, month)
	if len(monthRows) == 0 {
		writeAlert(w, http.StatusUnprocessableEntity, fmt.Sprintf("No records for %s.", month))
		return
	}

	monthTotal := core.Money{Cents: monthRows.TotalCents()}
	kpis := core.ComputeKPIs(core.SummarizeByCategory(table))
	trend := core.RecentTrend(table, 3)

	prompt := insight.BuildReportPrompt(month, monthTotal, kpis, trend)
	text, err := s.generator.Complete(r.Context(), prompt)
	if err != nil {
		ctxlog(r).ErrorContext(r.Context(), "Report generation failed", applog.FieldMonth, string(month), applog.FieldError, err)
		writeAlert(w, http.StatusBadGateway, "Could not generate the report: "+err.Error())
		return
	}

	// Normalize currency glyphs once, at generation time; the cached text is
	// what both the panel and the PDF show.
	text = report.SanitizeCurrency(text)
	s.state.SetReport(month, text)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<div class="report-text"><h3>Report for %s</h3><p class="prewrap">%s</p><a class="button" href="/report/pdf">Download PDF</a></div>`,
		template.HTMLEscapeString(string(month)), template.HTMLEscapeString(text))
}

// handleExportPDF streams the assembled report document. It refuses with a
// directive when the report text or chart image does not exist yet.
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, text := s.state.Report()
	kpis := core.ComputeKPIs(core.SummarizeByCategory(s.state.Table()))

	doc, err := report.Build(kpis, text, s.state.KPIChartPath(), time.Now())
	if err != nil {
		var mpe *report.MissingPrerequisiteError
		if errors.As(err, &mpe) {
			http.Error(w, mpe.Directive, http.StatusConflict)
			return
		}
		ctxlog(r).ErrorContext(r.Context(), "PDF assembly failed", applog.FieldError, err)
		http.Error(w, "could not assemble the report document", http.StatusInternalServerError)
		return
	}

	ctxlog(r).InfoContext(r.Context(), "Report exported", "bytes", len(doc))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	_, _ = w.Write(doc)
}

// writeAlert emits an inline error fragment for HTMX swaps.
func writeAlert(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<div class="alert">%s</div>`, template.HTMLEscapeString(msg))
}

// writeNotice emits an inline success fragment for HTMX swaps.
func writeNotice(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<div class="notice">%s</div>`, template.HTMLEscapeString(msg))
}
