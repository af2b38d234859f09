package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/mdsummary/internal/analysis"
	"github.com/user/mdsummary/internal/config"
	"github.com/user/mdsummary/internal/logging"
	"github.com/user/mdsummary/internal/summary"
)

// App holds the configuration and logger of one command invocation.
type App struct {
	out    io.Writer
	cfg    *config.Config
	logger *zap.Logger
}

// NewApp creates an App printing its status lines to out.
func NewApp(out io.Writer) *App {
	return &App{out: out, cfg: config.Default(), logger: zap.NewNop()}
}

// Startup loads the configuration and builds the logger.
func (a *App) Startup(g *globalFlags) error {
	cfg := config.Default()
	if g.configPath != "" {
		loaded, err := config.Load(g.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if g.verbose {
		cfg.Logging.Level = "debug"
	}
	if g.logFormat != "" {
		cfg.Logging.Format = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// Shutdown flushes the logger.
func (a *App) Shutdown() {
	_ = a.logger.Sync()
}

func (a *App) sendStatus(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

// options merges the flags that were set into the configured options.
func (a *App) options(cmd *cobra.Command, f *aggregateFlags) summary.Options {
	opts := summary.OptionsFromConfig(a.cfg)
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		opts.OutputDir = f.outputDir
	}
	if flags.Changed("null-token") {
		opts.Format.NullToken = f.nullToken
	}
	if flags.Changed("workers") {
		opts.Workers = f.workers
	}
	if flags.Changed("min-runs") {
		opts.MinRuns = f.minRuns
	}
	if flags.Changed("plots") {
		opts.Plots = f.plots
	}
	if flags.Changed("report") {
		opts.ReportPath = f.report
	}
	opts.Runs = f.runs
	return opts
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// printSummary writes the outcome of one aggregation for the user.
func (a *App) printSummary(sum *summary.Summary) {
	if sum == nil {
		return
	}
	if len(sum.Patterns) == 0 {
		a.sendStatus("No result files found under %s.", sum.Root)
		return
	}
	a.sendStatus("Aggregated %d runs, %d result files.", len(sum.Runs), len(sum.Patterns))
	for _, t := range sum.Tables {
		a.sendStatus("  %-24s -> %s (%d rows, %d runs)", t.Pattern, t.Path, t.Rows, len(t.Runs))
		for _, sk := range t.Skipped {
			if errors.Is(sk.Reason, analysis.ErrMissingFile) {
				continue
			}
			a.sendStatus("      skipped %s: %v", sk.Run, sk.Reason)
		}
	}
	for _, f := range sum.Failures {
		a.sendStatus("  %-24s no table: %v", f.Pattern, f.Err)
	}
	if sum.CoveragePath != "" {
		a.sendStatus("Coverage: %s", sum.CoveragePath)
	}
	if sum.ReportPath != "" {
		a.sendStatus("Report: %s", sum.ReportPath)
	}
}
