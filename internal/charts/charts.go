// Package charts renders the dashboard charts as PNG images.
//
// Chart builders are pure mappings from aggregated data to a rendered image;
// the only error condition beyond the rendering library itself is "no data",
// which callers must turn into a user-visible empty state.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"golang.org/x/sync/singleflight"

	"qualitycost/internal/core"
)

// ErrNoData signals an empty table: nothing is plotted silently.
var ErrNoData = errors.New("no records to chart")

// KPIChartFile is the fixed name of the rasterized KPI comparison chart,
// read back later by the report exporter.
const KPIChartFile = "kpi_chart.png"

// Renderer rasterizes charts and caches the KPI chart image on disk.
// Concurrent renders of the same chart over the same aggregates collapse
// into one; the singleflight key carries the data, so renders spanning a
// table mutation never share a result.
type Renderer struct {
	dir   string
	group singleflight.Group
}

func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir}
}

// KPIChartPath is where WriteKPIChart places the rasterized comparison chart.
func (r *Renderer) KPIChartPath() string {
	return filepath.Join(r.dir, KPIChartFile)
}

// KPIBar renders the COGQ vs COPQ comparison bar chart.
func (r *Renderer) KPIBar(k core.KPISnapshot) ([]byte, error) {
	if k.Total.Cents == 0 {
		return nil, ErrNoData
	}
	key := fmt.Sprintf("kpi:%d/%d", k.COGQ.Cents, k.COPQ.Cents)
	return r.render(key, func() ([]byte, error) {
		graph := chart.BarChart{
			Title:    "COGQ vs COPQ Comparison",
			Width:    800,
			Height:   480,
			BarWidth: 120,
			Background: chart.Style{
				Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
			},
			Bars: []chart.Value{
				{
					Label: "Good Quality (COGQ)",
					Value: k.COGQ.Rupees(),
					Style: chart.Style{FillColor: chart.ColorGreen.WithAlpha(200), StrokeColor: chart.ColorGreen},
				},
				{
					Label: "Poor Quality (COPQ)",
					Value: k.COPQ.Rupees(),
					Style: chart.Style{FillColor: chart.ColorRed.WithAlpha(200), StrokeColor: chart.ColorRed},
				},
			},
		}
		var buf bytes.Buffer
		if err := graph.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render kpi bar chart: %w", err)
		}
		return buf.Bytes(), nil
	})
}

// CategoryPie renders the cost breakdown by category.
func (r *Renderer) CategoryPie(s core.CategorySummary) ([]byte, error) {
	var values []chart.Value
	for _, c := range core.Categories {
		if s[c].Cents == 0 {
			continue // zero slices make the pie unreadable
		}
		values = append(values, chart.Value{Label: string(c), Value: s[c].Rupees()})
	}
	if len(values) == 0 {
		return nil, ErrNoData
	}
	var key strings.Builder
	key.WriteString("breakdown")
	for _, c := range core.Categories {
		fmt.Fprintf(&key, ":%d", s[c].Cents)
	}
	return r.render(key.String(), func() ([]byte, error) {
		graph := chart.PieChart{
			Title:  "Cost Breakdown by Category",
			Width:  560,
			Height: 560,
			Values: values,
		}
		var buf bytes.Buffer
		if err := graph.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render category pie chart: %w", err)
		}
		return buf.Bytes(), nil
	})
}

// TrendLine renders total quality cost per month for the months present.
func (r *Renderer) TrendLine(trend core.MonthlyTrend) ([]byte, error) {
	if len(trend) == 0 {
		return nil, ErrNoData
	}
	var key strings.Builder
	key.WriteString("trend")
	for _, p := range trend {
		fmt.Fprintf(&key, ":%s=%d", p.Month, p.Total.Cents)
	}
	return r.render(key.String(), func() ([]byte, error) {
		xs := make([]float64, len(trend))
		ys := make([]float64, len(trend))
		ticks := make([]chart.Tick, len(trend))
		for i, p := range trend {
			xs[i] = float64(i + 1)
			ys[i] = p.Total.Rupees()
			ticks[i] = chart.Tick{Value: float64(i + 1), Label: string(p.Month)}
		}
		graph := chart.Chart{
			Title:  "Total Quality Cost per Month",
			Width:  800,
			Height: 400,
			Background: chart.Style{
				Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
			},
			XAxis: chart.XAxis{
				Ticks: ticks,
				// Explicit range keeps single-month tables renderable.
				Range: &chart.ContinuousRange{Min: 0.5, Max: float64(len(trend)) + 0.5},
			},
			Series: []chart.Series{
				chart.ContinuousSeries{
					XValues: xs,
					YValues: ys,
					Style: chart.Style{
						StrokeColor: chart.ColorBlue,
						DotColor:    chart.ColorBlue,
						DotWidth:    4,
					},
				},
			},
		}
		var buf bytes.Buffer
		if err := graph.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render trend line chart: %w", err)
		}
		return buf.Bytes(), nil
	})
}

// WriteKPIChart renders the KPI comparison chart and writes it to the known
// path for later embedding in the PDF report. Returns the written path.
func (r *Renderer) WriteKPIChart(k core.KPISnapshot) (string, error) {
	png, err := r.KPIBar(k)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}
	path := r.KPIChartPath()
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("write kpi chart: %w", err)
	}
	return path, nil
}

func (r *Renderer) render(key string, fn func() ([]byte, error)) ([]byte, error) {
	v, err, _ := r.group.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
