// Package report assembles the monthly quality report PDF.
//
// The exporter only composes artifacts produced by earlier steps: the KPI
// snapshot, the generated insight text, and the rasterized KPI chart image.
// It never triggers their production itself.
package report

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"qualitycost/internal/core"
)

// Filename is the fixed name of the exported document.
const Filename = "Monthly_Quality_Report.pdf"

// MissingPrerequisiteError signals an export attempted before a required
// artifact exists. The message is a directive: it tells the user which prior
// step to complete.
type MissingPrerequisiteError struct {
	Directive string
}

func (e *MissingPrerequisiteError) Error() string { return e.Directive }

// Build assembles the report document and returns its bytes. It fails with
// MissingPrerequisiteError when the insight text is empty or the chart image
// file is absent; no partial document is ever produced.
func Build(kpis core.KPISnapshot, insightText, chartImagePath string, generatedAt time.Time) ([]byte, error) {
	if strings.TrimSpace(insightText) == "" {
		return nil, &MissingPrerequisiteError{
			Directive: "no generated report text: generate the monthly report first",
		}
	}
	if chartImagePath == "" {
		return nil, &MissingPrerequisiteError{
			Directive: "no KPI chart image: visit the dashboard first to generate it",
		}
	}
	if _, err := os.Stat(chartImagePath); err != nil {
		return nil, &MissingPrerequisiteError{
			Directive: "KPI chart image not found: visit the dashboard first to generate it",
		}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Monthly Quality Performance Report", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 10, "Date: "+generatedAt.Format("January 2006"), "", 1, "L", false, 0, "")
	pdf.Ln(5)

	pdf.MultiCell(0, 8, fmt.Sprintf(
		"COGQ: Rs.%s\nCOPQ: Rs.%s\nTotal Cost: Rs.%s",
		kpis.COGQ.Grouped(), kpis.COPQ.Grouped(), kpis.Total.Grouped(),
	), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 10, "KPI Comparison Chart:", "", 1, "L", false, 0, "")
	pdf.ImageOptions(chartImagePath, 25, 0, 160, 0, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 10, "AI-Generated Insights:", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 8, tr(SanitizeCurrency(insightText)), "", "L", false)
	pdf.Ln(5)

	pdf.CellFormat(0, 10, "Generated by Smart Quality Cost Monitoring Dashboard", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// SanitizeCurrency substitutes currency glyphs the document font cannot
// render with an ASCII-safe equivalent.
func SanitizeCurrency(s string) string {
	return strings.ReplaceAll(s, "₹", "Rs.")
}
