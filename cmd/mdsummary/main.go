package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// flags shared by every command
type globalFlags struct {
	configPath string
	verbose    bool
	logFormat  string
}

// summarize and watch flags; a flag left unset keeps the configured value
type aggregateFlags struct {
	outputDir string
	nullToken string
	workers   int
	minRuns   int
	plots     bool
	report    string
	runs      []string
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	g := &globalFlags{}
	app := NewApp(stdout)

	rootCmd := &cobra.Command{
		Use:   "mdsummary",
		Short: "Merge per-run MD result files into one table per result file",
		Long: `mdsummary scans a directory holding one subdirectory per simulation run,
parses every result file (GROMACS .xvg by default) and writes, for each
result file name, a table with the common timeline "x" and one column per run.

Malformed tokens, empty or single-column files and missing files only cost
the affected value, run or table; the remaining tables are still written.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "init" {
				return nil
			}
			return app.Startup(g)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Shutdown()
		},
	}
	rootCmd.SetOut(stdout)

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML config file (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format: console or json (overrides config)")

	rootCmd.AddCommand(newSummarizeCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func addAggregateFlags(cmd *cobra.Command, f *aggregateFlags) {
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Directory for the tables (default: the root)")
	cmd.Flags().StringVar(&f.nullToken, "null-token", "", "Text written for missing values")
	cmd.Flags().IntVarP(&f.workers, "workers", "j", 0, "Result files processed concurrently")
	cmd.Flags().IntVar(&f.minRuns, "min-runs", 0, "Contributing runs required to write a table")
	cmd.Flags().BoolVar(&f.plots, "plots", false, "Also write a PNG plot per table and a coverage heatmap")
	cmd.Flags().StringVar(&f.report, "report", "", "Also write a PDF summary report to this path")
	cmd.Flags().StringSliceVarP(&f.runs, "run", "r", nil, "Only aggregate these run directories (repeatable)")
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
