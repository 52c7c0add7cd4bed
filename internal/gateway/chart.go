package gateway

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/charmbracelet/log"
	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/coverage-stats/internal/domain"
)

// maxMarkerSize is the diameter in pixels of the largest marker.
const maxMarkerSize = 20

//go:embed templates/chart.html.tmpl
var templateFS embed.FS

// ChartRenderer is the sink a finished chart is handed to.
type ChartRenderer interface {
	Render(path string, chart *domain.Chart) error
}

// HTMLRenderer renders charts as self-contained plotly pages.
type HTMLRenderer struct {
	writer Writer
	tmpl   *template.Template
	logger *log.Logger
}

// NewHTMLRenderer parses the embedded chart template.
func NewHTMLRenderer(writer Writer, logger *log.Logger) (*HTMLRenderer, error) {
	funcMap := template.FuncMap{
		"sizeRef": sizeRef,
		"trendX": func(pts []domain.Point) []float64 {
			xs := make([]float64, len(pts))
			for i, p := range pts {
				xs[i] = p.X
			}
			return xs
		},
		"trendY": func(pts []domain.Point) []float64 {
			ys := make([]float64, len(pts))
			for i, p := range pts {
				ys[i] = p.Y
			}
			return ys
		},
	}
	tmpl, err := template.New("chart.html.tmpl").Funcs(funcMap).ParseFS(templateFS, "templates/chart.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing chart template: %w", err)
	}
	return &HTMLRenderer{writer: writer, tmpl: tmpl, logger: logger}, nil
}

// Render writes the chart page to path.
func (r *HTMLRenderer) Render(path string, chart *domain.Chart) error {
	if len(chart.X) != len(chart.Y) || len(chart.X) != len(chart.Size) {
		return fmt.Errorf("chart %q has mismatched sequences: x=%d y=%d size=%d",
			chart.Title, len(chart.X), len(chart.Y), len(chart.Size))
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, chart); err != nil {
		return fmt.Errorf("rendering chart %q: %w", chart.Title, err)
	}
	if err := r.writer.WriteFile(path, buf.Bytes()); err != nil {
		return err
	}
	r.logger.Info("chart written", "path", path, "points", chart.Len())
	return nil
}

// sizeRef scales area-mode markers so the largest size is drawn
// maxMarkerSize pixels across.
func sizeRef(sizes []float64) float64 {
	largest, err := stats.Max(sizes)
	if err != nil || largest <= 0 {
		return 1
	}
	return 2 * largest / (maxMarkerSize * maxMarkerSize)
}
