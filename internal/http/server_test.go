package http

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"qualitycost/internal/charts"
	"qualitycost/internal/core"
	"qualitycost/internal/insight"
	"qualitycost/internal/session"
	"qualitycost/internal/store"
)

func newTestServer(t *testing.T, table core.Table) (*Server, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st := store.New(filepath.Join(dir, "quality_data.csv"))
	if err := st.Save(table); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	state := session.NewState(table)
	renderer := charts.NewRenderer(filepath.Join(dir, "charts"))
	generator := insight.NewGenerator(insight.Options{}) // no API key
	srv := NewServer(":0", st, state, renderer, generator)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv, st
}

func sampleTable() core.Table {
	return core.Table{
		{Month: core.Jan, Category: core.Prevention, Cost: core.Money{Cents: 10000}, Description: "Training"},
		{Month: core.Jan, Category: core.Appraisal, Cost: core.Money{Cents: 5000}, Description: "Inspection"},
		{Month: core.Feb, Category: core.InternalFailure, Cost: core.Money{Cents: 3000}, Description: "Rework"},
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestIndexRenders(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, want := range []string{"Smart Quality Cost", "Prevention", "External Failure", "Dec"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
}

func TestIndexUnknownPathIs404(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func multipartCSV(t *testing.T, csvBody string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "upload.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(csvBody)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadMergesAndPersists(t *testing.T) {
	srv, st := newTestServer(t, sampleTable())

	body, contentType := multipartCSV(t, strings.Join([]string{
		"Month,Category,Cost,Description",
		"Jan,Prevention,100.00,Training", // duplicate of an existing row
		"Mar,External Failure,75.50,Warranty claim",
		"",
	}, "\n"))

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "1 new record(s), 4 total") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if rec.Header().Get("HX-Trigger") != "records-changed" {
		t.Errorf("missing records-changed trigger")
	}

	saved, err := st.Load()
	if err != nil {
		t.Fatalf("reload store: %v", err)
	}
	if len(saved) != 4 {
		t.Errorf("persisted records = %d, want 4", len(saved))
	}
}

func TestUploadSchemaErrorLeavesTableUntouched(t *testing.T) {
	srv, st := newTestServer(t, sampleTable())

	body, contentType := multipartCSV(t, "Month,Category,Amount,Description\nJan,Prevention,100.00,Training\n")

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rec.Body.String(), "Cost") || !strings.Contains(rec.Body.String(), "Amount") {
		t.Errorf("schema error should name the offending columns, got %s", rec.Body.String())
	}

	saved, err := st.Load()
	if err != nil {
		t.Fatalf("reload store: %v", err)
	}
	if !saved.Equal(sampleTable()) {
		t.Errorf("table changed after rejected upload")
	}
}

func TestAddRecord(t *testing.T) {
	srv, st := newTestServer(t, nil)

	form := "month=Apr&category=Appraisal&cost=42.50&description=Audit"
	req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Record added") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	saved, err := st.Load()
	if err != nil {
		t.Fatalf("reload store: %v", err)
	}
	if len(saved) != 1 || saved[0].Cost.Cents != 4250 {
		t.Errorf("persisted table = %+v", saved)
	}
}

func TestAddRecordRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	cases := []struct {
		name string
		form string
	}{
		{"bad month", "month=January&category=Appraisal&cost=10&description=x"},
		{"bad category", "month=Jan&category=Unknown&cost=10&description=x"},
		{"negative cost", "month=Jan&category=Appraisal&cost=-5&description=x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/records", strings.NewReader(tc.form))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			srv.Server.Handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
			}
		})
	}
}

func TestDashboardEmptyState(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/ui/dashboard", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No records yet") {
		t.Errorf("expected empty state, got %s", rec.Body.String())
	}
}

func TestDashboardShowsKPIs(t *testing.T) {
	srv, _ := newTestServer(t, sampleTable())

	req := httptest.NewRequest(http.MethodGet, "/ui/dashboard", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"₹150", "₹30", "₹180", "3 record(s)"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}

	// Rendering the dashboard must leave the KPI chart image behind for the
	// PDF exporter.
	if srv.state.KPIChartPath() == "" {
		t.Errorf("KPI chart path not recorded")
	}
}

func TestChartEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, sampleTable())

	for _, path := range []string{"/charts/kpi.png", "/charts/breakdown.png", "/charts/trend.png"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, rec.Code)
			continue
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("%s: content type = %q", path, ct)
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
			t.Errorf("%s: not a PNG", path)
		}
	}
}

func TestChartEndpointsWithoutData(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, path := range []string{"/charts/kpi.png", "/charts/breakdown.png", "/charts/trend.png"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want %d", path, rec.Code, http.StatusNotFound)
		}
	}
}

func TestReportPanelListsOnlyPresentMonths(t *testing.T) {
	srv, _ := newTestServer(t, sampleTable())

	req := httptest.NewRequest(http.MethodGet, "/ui/report-panel", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, ">Jan<") || !strings.Contains(body, ">Feb<") {
		t.Errorf("panel missing present months: %s", body)
	}
	if strings.Contains(body, ">Mar<") {
		t.Errorf("panel offers a month with no records: %s", body)
	}
}

func TestSuggestionsWithoutRecords(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/suggestions", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestSuggestionsWithoutAPIKey(t *testing.T) {
	srv, _ := newTestServer(t, sampleTable())

	req := httptest.NewRequest(http.MethodPost, "/suggestions", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if !strings.Contains(rec.Body.String(), "not configured") {
		t.Errorf("expected key error, got %s", rec.Body.String())
	}
	if srv.state.Suggestions() != "" {
		t.Errorf("failed generation must not overwrite suggestions")
	}
}

func TestGenerateReportRejectsAbsentMonth(t *testing.T) {
	srv, _ := newTestServer(t, sampleTable())

	req := httptest.NewRequest(http.MethodPost, "/report", strings.NewReader("month=Dec"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestExportWithoutPrerequisites(t *testing.T) {
	srv, _ := newTestServer(t, sampleTable())

	req := httptest.NewRequest(http.MethodGet, "/report/pdf", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if !strings.Contains(rec.Body.String(), "generate the monthly report first") {
		t.Errorf("expected directive, got %s", rec.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	}
	for k, want := range headers {
		if got := rec.Header().Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Errorf("missing Content-Security-Policy")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Errorf("61st request should be limited")
	}
	if !rl.allow("10.0.0.2") {
		t.Errorf("other clients must not be affected")
	}
}

func TestExtractClientIP(t *testing.T) {
	cases := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"remote addr", "192.168.1.10:1234", nil, "192.168.1.10"},
		{"x-forwarded-for", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"x-real-ip", "10.0.0.1:1234", map[string]string{"X-Real-IP": "203.0.113.8"}, "203.0.113.8"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := extractClientIP(req); got != tc.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tc.want)
			}
		})
	}
}
