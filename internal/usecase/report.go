// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/naka-gawa/coverage-stats/internal/domain"
	"github.com/naka-gawa/coverage-stats/internal/gateway"
	"golang.org/x/sync/errgroup"
)

// pointSize is the marker size of charts that do not scale points.
const pointSize = 10

// OutputFiles names the files a report kind is written to.
type OutputFiles struct {
	CSV   string
	Chart string
}

// DefaultOutputFiles returns the fixed per-kind file names.
func DefaultOutputFiles() map[domain.ReportKind]OutputFiles {
	return map[domain.ReportKind]OutputFiles{
		domain.KindSystemRepos: {CSV: "system_repos.csv", Chart: "system_repos_chart.html"},
		domain.KindZeroBugs:    {CSV: "zero_bugs_comp.csv", Chart: "zero_bugs_comp_chart.html"},
		domain.KindWithBugs:    {CSV: "with_bugs_comp.csv", Chart: "with_bugs_comp_chart.html"},
		domain.KindGeneric:     {CSV: "generic_comp.csv", Chart: "generic_comp_chart.html"},
		domain.KindComponent:   {CSV: "component.csv"},
	}
}

// GeneratorConfig holds where reports are written.
type GeneratorConfig struct {
	OutputDir string
	Files     map[domain.ReportKind]OutputFiles
}

// Generator is the use case for building coverage and bug reports.
// It filters and aggregates a dataset and hands the result to a file
// writer (csv) or a chart renderer (chart).
type Generator struct {
	writer   gateway.Writer
	renderer gateway.ChartRenderer
	cfg      GeneratorConfig
	logger   *log.Logger
}

// NewGenerator creates a new Generator instance.
func NewGenerator(writer gateway.Writer, renderer gateway.ChartRenderer, cfg GeneratorConfig, logger *log.Logger) *Generator {
	return &Generator{
		writer:   writer,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Generate builds the report and emits it: csv mode writes the kind's CSV
// file, chart mode hands the chart to the renderer. Nothing is written when
// building fails.
func (g *Generator) Generate(ds *domain.Dataset, kind domain.ReportKind, mode domain.OutputMode) (*domain.Report, error) {
	report, err := g.Build(ds, kind, mode)
	if err != nil {
		return nil, err
	}
	if err := g.emit(report, mode); err != nil {
		return nil, err
	}
	return report, nil
}

// GenerateAll writes the CSV report of every kind. Kinds are built
// concurrently over the read-only dataset; files are written only once every
// kind has built, so a failing kind leaves no output behind.
func (g *Generator) GenerateAll(ctx context.Context, ds *domain.Dataset) ([]*domain.Report, error) {
	reports := make([]*domain.Report, len(domain.ReportKinds))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, kind := range domain.ReportKinds {
		i, kind := i, kind
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			report, err := g.Build(ds, kind, domain.OutputCSV)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, report := range reports {
		if err := g.emit(report, domain.OutputCSV); err != nil {
			return nil, err
		}
	}
	return reports, nil
}

func (g *Generator) emit(report *domain.Report, mode domain.OutputMode) error {
	path, err := g.outputPath(report.Kind, mode)
	if err != nil {
		return err
	}

	if mode == domain.OutputChart {
		if err := g.renderer.Render(path, report.Chart); err != nil {
			return fmt.Errorf("failed to render %s chart: %w", report.Kind, err)
		}
		return nil
	}
	data, err := report.CSV()
	if err != nil {
		return err
	}
	if err := g.writer.WriteFile(path, data); err != nil {
		return fmt.Errorf("failed to write %s report: %w", report.Kind, err)
	}
	g.logger.Info("report written", "kind", report.Kind, "path", path, "rows", len(report.Rows))
	return nil
}

// Build filters and aggregates the dataset for kind without side effects.
// In chart mode the returned report also carries the chart sequences, the
// trend line and the Pearson correlation when enough points exist.
func (g *Generator) Build(ds *domain.Dataset, kind domain.ReportKind, mode domain.OutputMode) (*domain.Report, error) {
	if _, err := domain.ParseOutputMode(string(mode)); err != nil {
		return nil, err
	}
	if mode == domain.OutputChart && !kind.SupportsChart() {
		return nil, fmt.Errorf("%w: %s report supports csv output only", domain.ErrUnsupportedOutput, kind)
	}

	var (
		report *domain.Report
		err    error
	)
	withChart := mode == domain.OutputChart
	switch kind {
	case domain.KindSystemRepos:
		report, err = buildSystemRepos(ds, withChart)
	case domain.KindZeroBugs:
		report, err = buildComponentCoverage(ds, kind, withChart, func(bugs int) bool { return bugs == 0 })
	case domain.KindWithBugs:
		report, err = buildComponentCoverage(ds, kind, withChart, func(bugs int) bool { return bugs > 0 })
	case domain.KindGeneric:
		report, err = buildComponentCoverage(ds, kind, withChart, func(int) bool { return true })
	case domain.KindComponent:
		report, err = buildComponentInventory(ds)
	default:
		return nil, fmt.Errorf("%w: unknown report kind %q", domain.ErrInvalidSelector, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build %s report: %w", kind, err)
	}

	if report.Chart != nil {
		g.annotate(report.Chart)
	}
	g.logger.Debug("report built", "kind", kind, "mode", mode, "rows", len(report.Rows))
	return report, nil
}

// annotate adds the trend line and correlation to a filled chart.
func (g *Generator) annotate(chart *domain.Chart) {
	chart.Trend = trendLine(chart.X, chart.Y)
	corr, err := Correlate(chart.X, chart.Y)
	if err != nil {
		g.logger.Warn("correlation not computed", "kind", chart.Kind, "points", chart.Len(), "reason", err)
		return
	}
	chart.Correlation = corr
	g.logger.Info("correlation", "kind", chart.Kind, "r", corr.R, "p", corr.PValue, "n", corr.N)
}

func (g *Generator) outputPath(kind domain.ReportKind, mode domain.OutputMode) (string, error) {
	files, ok := g.cfg.Files[kind]
	name := files.CSV
	if mode == domain.OutputChart {
		name = files.Chart
	}
	if !ok || name == "" {
		return "", fmt.Errorf("no %s output file configured for %s report", mode, kind)
	}
	return filepath.Join(g.cfg.OutputDir, name), nil
}

func newChart(kind domain.ReportKind) *domain.Chart {
	chart := &domain.Chart{
		Kind: kind,
		X:    []float64{},
		Y:    []float64{},
		Size: []float64{},
	}
	switch kind {
	case domain.KindSystemRepos:
		chart.Title = "Size in lines x Code coverage"
		chart.XTitle, chart.YTitle = "Lines of code", "Code coverage (%)"
	case domain.KindZeroBugs:
		chart.Title = "Size in lines x Code coverage (components without reported bugs)"
		chart.XTitle, chart.YTitle = "Lines of code", "Code coverage (%)"
	case domain.KindWithBugs:
		chart.Title = "Code coverage x Reported bugs (excluding components without reported bugs)"
		chart.XTitle, chart.YTitle = "Code coverage (%)", "Reported bugs"
	default:
		chart.Title = "Code coverage x Reported bugs"
		chart.XTitle, chart.YTitle = "Code coverage (%)", "Reported bugs"
	}
	return chart
}

func buildSystemRepos(ds *domain.Dataset, withChart bool) (*domain.Report, error) {
	report := &domain.Report{
		Kind:   domain.KindSystemRepos,
		Header: []string{"Repository", "Total", "Covered"},
		Rows:   [][]string{},
	}
	if withChart {
		report.Chart = newChart(domain.KindSystemRepos)
	}

	system, ok := ds.Get(domain.SystemReposKey)
	if !ok || system == nil {
		return nil, fmt.Errorf("%w: entity %q not found", domain.ErrMalformedInput, domain.SystemReposKey)
	}
	if !system.HasRepos() {
		return nil, fmt.Errorf("%w: entity %q has no reposCoverage", domain.ErrMalformedInput, domain.SystemReposKey)
	}

	err := system.EachRepo(func(repo string, t domain.Totals) error {
		report.Rows = append(report.Rows, []string{repo, strconv.Itoa(t.Valid), strconv.Itoa(t.Covered)})
		if report.Chart == nil {
			return nil
		}
		pct, err := t.Percent()
		if err != nil {
			return fmt.Errorf("repository %q: %w", repo, err)
		}
		report.Chart.Add(float64(t.Valid), pct, pointSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// buildComponentCoverage reports every valid component whose bug count is
// accepted by keep.
func buildComponentCoverage(ds *domain.Dataset, kind domain.ReportKind, withChart bool, keep func(bugs int) bool) (*domain.Report, error) {
	report := &domain.Report{
		Kind:   kind,
		Header: []string{"Component", "Bugs", "Total", "Covered"},
		Rows:   [][]string{},
	}
	if withChart {
		report.Chart = newChart(kind)
	}

	err := ds.Each(func(name string, e *domain.Entity) error {
		valid, err := e.ValidComponent()
		if err != nil {
			return fmt.Errorf("entity %q: %w", name, err)
		}
		if !valid {
			return nil
		}
		bugs, err := e.BugCount()
		if err != nil {
			return fmt.Errorf("component %q: %w", name, err)
		}
		if !keep(bugs) {
			return nil
		}
		totals, err := e.Totals()
		if err != nil {
			return fmt.Errorf("component %q: %w", name, err)
		}

		report.Rows = append(report.Rows, []string{
			name, strconv.Itoa(bugs), strconv.Itoa(totals.Valid), strconv.Itoa(totals.Covered),
		})
		if report.Chart == nil {
			return nil
		}

		pct, err := totals.Percent()
		if err != nil {
			return fmt.Errorf("component %q: %w", name, err)
		}
		if kind == domain.KindZeroBugs {
			report.Chart.Add(float64(totals.Valid), pct, pointSize)
		} else {
			report.Chart.Add(pct, float64(bugs), totals.SizeScale())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// buildComponentInventory lists every entity with its bug, repository and
// line counts. Entities without reposCoverage report zero repositories and lines.
func buildComponentInventory(ds *domain.Dataset) (*domain.Report, error) {
	report := &domain.Report{
		Kind:   domain.KindComponent,
		Header: []string{"Component", "Bugs", "Repos", "Lines"},
		Rows:   [][]string{},
	}

	err := ds.Each(func(name string, e *domain.Entity) error {
		isComp, err := e.Component()
		if err != nil {
			return fmt.Errorf("entity %q: %w", name, err)
		}
		bugs := 0
		if isComp || e.Bugs != nil {
			if bugs, err = e.BugCount(); err != nil {
				return fmt.Errorf("entity %q: %w", name, err)
			}
		}
		totals, err := e.Totals()
		if err != nil {
			return fmt.Errorf("entity %q: %w", name, err)
		}
		report.Rows = append(report.Rows, []string{
			name, strconv.Itoa(bugs), strconv.Itoa(e.RepoCount()), strconv.Itoa(totals.Valid),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}
