// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// logger is replaced in PersistentPreRun once --verbose is known.
	logger = log.New(io.Discard)
	// appFs is the filesystem every command reads and writes through.
	appFs = afero.NewOsFs()
)

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "covstats",
		Short: "A CLI tool to report test coverage and bug statistics.",
		Long: `covstats reads a JSON dataset describing components, their repositories,
lines of code, test coverage and reported bugs. It counts totals, obfuscates
identifying names and produces CSV reports or scatter-plot charts correlating
code size, coverage and bugs.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(viper.GetBool("verbose"), os.Stderr)
		},
	}

	// Add a persistent flag for verbose output, available to all commands.
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.covstats.yaml or $HOME/.covstats.yaml)")
	_ = viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))

	root.AddCommand(newDigestCmd())
	root.AddCommand(newCountCmd())
	root.AddCommand(newObfuscateCmd())
	return root
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger discards everything unless verbose is set.
func newLogger(verbose bool, w io.Writer) *log.Logger {
	if !verbose {
		return log.New(io.Discard)
	}
	return log.NewWithOptions(w, log.Options{
		Level:           log.DebugLevel,
		ReportTimestamp: true,
	})
}

func init() {
	cobra.OnInitialize(initConfig)
}
