package domain

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// ReportKind selects which entities a report covers and how they are aggregated.
type ReportKind string

const (
	KindSystemRepos ReportKind = "system-repos"
	KindZeroBugs    ReportKind = "zero-bugs"
	KindWithBugs    ReportKind = "with-bugs"
	KindGeneric     ReportKind = "generic"
	KindComponent   ReportKind = "component"
)

// ReportKinds lists every kind in CLI order.
var ReportKinds = []ReportKind{KindSystemRepos, KindZeroBugs, KindWithBugs, KindGeneric, KindComponent}

// ParseReportKind converts a selector string into a ReportKind.
func ParseReportKind(s string) (ReportKind, error) {
	for _, k := range ReportKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown report kind %q", ErrInvalidSelector, s)
}

// SupportsChart reports whether the kind can be rendered as a scatter plot.
func (k ReportKind) SupportsChart() bool {
	return k != KindComponent
}

// OutputMode is the form a report is emitted in.
type OutputMode string

const (
	OutputCSV   OutputMode = "csv"
	OutputChart OutputMode = "chart"
)

// ParseOutputMode converts a selector string into an OutputMode.
func ParseOutputMode(s string) (OutputMode, error) {
	switch OutputMode(s) {
	case OutputCSV, OutputChart:
		return OutputMode(s), nil
	}
	return "", fmt.Errorf("%w: unknown output %q (must be 'csv' or 'chart')", ErrInvalidSelector, s)
}

// Report is the result of a single generator run.
type Report struct {
	Kind   ReportKind
	Header []string
	Rows   [][]string
	// Chart is nil unless the report was built in chart mode.
	Chart *Chart
}

// CSV encodes the header and rows. The header is always present.
func (r *Report) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(r.Header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := w.WriteAll(r.Rows); err != nil {
		return nil, fmt.Errorf("failed to write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

// Point is one (x, y) coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Correlation is the Pearson coefficient of a chart's (x, y) sequences.
type Correlation struct {
	R      float64 `json:"r"`
	PValue float64 `json:"p_value"`
	N      int     `json:"n"`
}

// Chart carries the scatter-plot data handed to a renderer.
// X, Y and Size always have equal length.
type Chart struct {
	Kind   ReportKind `json:"kind"`
	Title  string     `json:"title"`
	XTitle string     `json:"x_title"`
	YTitle string     `json:"y_title"`
	X      []float64  `json:"x"`
	Y      []float64  `json:"y"`
	Size   []float64  `json:"size"`
	// Trend is the least-squares line over (X, Y), sorted by X. Empty when
	// fewer than two distinct X values exist.
	Trend       []Point      `json:"trend,omitempty"`
	Correlation *Correlation `json:"correlation,omitempty"`
}

// Add appends one point to the chart.
func (c *Chart) Add(x, y, size float64) {
	c.X = append(c.X, x)
	c.Y = append(c.Y, y)
	c.Size = append(c.Size, size)
}

// Len is the number of points.
func (c *Chart) Len() int {
	return len(c.X)
}
