package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/naka-gawa/coverage-stats/internal/gateway"
	"github.com/naka-gawa/coverage-stats/internal/usecase"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newObfuscateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "obfuscate",
		Short: "Writes an obfuscated copy of the private dataset",
		Long: `Reads the private dataset (obfuscate.source) and writes a copy in which every
component is renamed to Component_NNN and every repository to Repository_NNN
(obfuscate.output). All other fields are copied unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, err := loadConfig(viper.GetViper())
			if err != nil {
				return err
			}
			return runObfuscate(obfuscateParams{
				source: cfg.Obfuscate.Source,
				output: cfg.Obfuscate.Output,
				fs:     appFs,
				stdout: cmd.OutOrStdout(),
				logger: logger,
			})
		},
	}
}

// obfuscateParams holds the inputs of the obfuscate command.
type obfuscateParams struct {
	source string
	output string
	fs     afero.Fs
	stdout io.Writer
	logger *log.Logger
}

// runObfuscate is the extracted, testable body of the obfuscate command.
func runObfuscate(p obfuscateParams) error {
	store := gateway.NewFileStore(p.fs, p.logger)
	src, err := store.LoadRaw(p.source)
	if err != nil {
		return err
	}
	if err := usecase.NewObfuscator(store, p.logger).Run(src, p.output); err != nil {
		return err
	}
	fmt.Fprintf(p.stdout, "%s %s\n", labelStyle.Render("Obfuscated data written to"), p.output)
	return nil
}
