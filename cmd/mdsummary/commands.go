package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/mdsummary/internal/config"
	"github.com/user/mdsummary/internal/summary"
)

func newSummarizeCmd(app *App) *cobra.Command {
	f := &aggregateFlags{}
	cmd := &cobra.Command{
		Use:   "summarize <root>",
		Short: "Aggregate the result files of every run directory once",
		Long: `Writes one table per distinct result file name found in the run
subdirectories of <root>. Only an unreadable root is an error; problems with
single files or result names are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context(), app.logger)
			defer cancel()

			agg := summary.New(app.options(cmd, f), app.logger)
			sum, err := agg.Run(ctx, args[0])
			if err != nil {
				return err
			}
			app.printSummary(sum)
			return nil
		},
	}
	addAggregateFlags(cmd, f)
	return cmd
}

func newWatchCmd(app *App) *cobra.Command {
	f := &aggregateFlags{}
	var debounce string
	cmd := &cobra.Command{
		Use:   "watch <root>",
		Short: "Aggregate, then aggregate again whenever result files change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("debounce") {
				app.cfg.Watch.Debounce = debounce
			}
			wait, err := app.cfg.DebounceDuration()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context(), app.logger)
			defer cancel()

			agg := summary.New(app.options(cmd, f), app.logger)
			w := summary.NewWatcher(agg, args[0], wait, app.logger)
			w.OnCycle = func(sum *summary.Summary, err error) {
				if err != nil {
					app.logger.Error("aggregation failed", zap.Error(err))
					return
				}
				app.printSummary(sum)
			}
			app.sendStatus("Watching %s (Ctrl+C to stop)", args[0])
			return w.Run(ctx)
		},
	}
	addAggregateFlags(cmd, f)
	cmd.Flags().StringVar(&debounce, "debounce", "", "Quiet period before re-aggregating, e.g. 500ms")
	return cmd
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "mdsummary.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if !force && fileExists(path) {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(initCmd)
	return configCmd
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
