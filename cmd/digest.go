package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/naka-gawa/coverage-stats/internal/domain"
	"github.com/naka-gawa/coverage-stats/internal/gateway"
	"github.com/naka-gawa/coverage-stats/internal/usecase"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// kindFlag binds a report kind to its selector flag.
type kindFlag struct {
	name  string
	short string
	kind  domain.ReportKind
	usage string
}

var kindFlags = []kindFlag{
	{"system-repos-report", "s", domain.KindSystemRepos, "Generate a report of system repositories."},
	{"zero-bugs-report", "z", domain.KindZeroBugs, "Generate a report of valid components without bugs."},
	{"with-bugs-report", "b", domain.KindWithBugs, "Generate a report of valid components with bugs."},
	{"generic-report", "g", domain.KindGeneric, "Generate a report containing all valid components."},
	{"component-report", "c", domain.KindComponent, "Generate a report listing every entity (csv only)."},
}

const allFlag = "all"

func newDigestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Digests the dataset into a CSV report or a chart",
		Long: `Digests the dataset and writes a CSV report or a scatter-plot chart for the
selected report kind. Exactly one report selector is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := digestParams{
				fs:     appFs,
				stdout: cmd.OutOrStdout(),
				logger: logger,
			}
			p.output, _ = cmd.Flags().GetString("output")
			p.all, _ = cmd.Flags().GetBool(allFlag)
			for _, f := range kindFlags {
				if on, _ := cmd.Flags().GetBool(f.name); on {
					p.kind = f.kind
				}
			}

			// Returning before SilenceUsage lets cobra print the usage.
			if _, err := domain.ParseOutputMode(p.output); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			cfg, err := loadConfig(viper.GetViper())
			if err != nil {
				return err
			}
			p.cfg = cfg
			return runDigest(cmd.Context(), p)
		},
	}

	names := make([]string, 0, len(kindFlags)+1)
	for _, f := range kindFlags {
		cmd.Flags().BoolP(f.name, f.short, false, f.usage)
		names = append(names, f.name)
	}
	cmd.Flags().BoolP(allFlag, "a", false, "Generate every CSV report.")
	names = append(names, allFlag)
	cmd.MarkFlagsMutuallyExclusive(names...)
	cmd.MarkFlagsOneRequired(names...)

	cmd.Flags().StringP("output", "o", string(domain.OutputCSV), "Output type: 'csv' or 'chart'.")
	return cmd
}

// digestParams holds the parsed flags for the digest command.
type digestParams struct {
	kind   domain.ReportKind
	all    bool
	output string
	cfg    Config
	fs     afero.Fs
	stdout io.Writer
	logger *log.Logger
}

// runDigest is the extracted, testable body of the digest command.
func runDigest(ctx context.Context, p digestParams) error {
	mode, err := domain.ParseOutputMode(p.output)
	if err != nil {
		return err
	}
	if p.all && mode == domain.OutputChart {
		return fmt.Errorf("%w: --all writes csv reports only", domain.ErrUnsupportedOutput)
	}
	if !p.all && mode == domain.OutputChart && !p.kind.SupportsChart() {
		return fmt.Errorf("%w: %s report supports csv output only", domain.ErrUnsupportedOutput, p.kind)
	}

	genCfg, err := p.cfg.GeneratorConfig()
	if err != nil {
		return err
	}
	store := gateway.NewFileStore(p.fs, p.logger)
	renderer, err := gateway.NewHTMLRenderer(store, p.logger)
	if err != nil {
		return err
	}
	generator := usecase.NewGenerator(store, renderer, genCfg, p.logger)

	ds, err := store.LoadDataset(p.cfg.Input)
	if err != nil {
		return err
	}

	if p.all {
		reports, err := generator.GenerateAll(ctx, ds)
		if err != nil {
			return err
		}
		for _, r := range reports {
			fmt.Fprintf(p.stdout, "%s %d rows\n", labelStyle.Render(string(r.Kind)+":"), len(r.Rows))
		}
		return nil
	}

	report, err := generator.Generate(ds, p.kind, mode)
	if err != nil {
		return err
	}
	if report.Chart != nil {
		writeCorrelation(p.stdout, report.Chart)
	}
	fmt.Fprintln(p.stdout, "Done!")
	return nil
}

func writeCorrelation(w io.Writer, chart *domain.Chart) {
	fmt.Fprintln(w, labelStyle.Render(chart.Title))
	if chart.Correlation == nil {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("Correlation not computed (%d points)", chart.Len())))
		return
	}
	c := chart.Correlation
	fmt.Fprintf(w, "%s %.4f\n", labelStyle.Render("Pearson r:"), c.R)
	fmt.Fprintf(w, "%s %.4g\n", labelStyle.Render("p-value:"), c.PValue)
	fmt.Fprintf(w, "%s %d\n", labelStyle.Render("Points:"), c.N)
}
