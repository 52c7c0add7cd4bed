package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/naka-gawa/coverage-stats/internal/gateway"
	"github.com/naka-gawa/coverage-stats/internal/usecase"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const allElements = "all"

func newCountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Counts repositories, components or valid lines in the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			element, _ := cmd.Flags().GetString("element")
			elements, err := parseElements(element)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			cfg, err := loadConfig(viper.GetViper())
			if err != nil {
				return err
			}
			return runCount(countParams{
				elements: elements,
				input:    cfg.Input,
				fs:       appFs,
				stdout:   cmd.OutOrStdout(),
				logger:   logger,
			})
		},
	}

	choices := make([]string, 0, len(usecase.CountElements)+1)
	for _, el := range usecase.CountElements {
		choices = append(choices, string(el))
	}
	choices = append(choices, allElements)
	cmd.Flags().StringP("element", "e", "", fmt.Sprintf("Element to be counted: %s (required)", strings.Join(choices, ", ")))
	_ = cmd.MarkFlagRequired("element")
	return cmd
}

// countParams holds the parsed flags for the count command.
type countParams struct {
	elements []usecase.CountElement
	input    string
	fs       afero.Fs
	stdout   io.Writer
	logger   *log.Logger
}

func parseElements(s string) ([]usecase.CountElement, error) {
	if s == allElements {
		return usecase.CountElements, nil
	}
	el, err := usecase.ParseCountElement(s)
	if err != nil {
		return nil, err
	}
	return []usecase.CountElement{el}, nil
}

// runCount is the extracted, testable body of the count command.
func runCount(p countParams) error {
	store := gateway.NewFileStore(p.fs, p.logger)
	ds, err := store.LoadDataset(p.input)
	if err != nil {
		return err
	}
	for _, el := range p.elements {
		n, err := usecase.Count(ds, el)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", el, err)
		}
		fmt.Fprintf(p.stdout, "%s %d\n", labelStyle.Render(el.Label()+":"), n)
	}
	return nil
}
