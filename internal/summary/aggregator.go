// Package summary drives an aggregation: it discovers the result files of
// every run directory, aligns each result file across runs, and writes the
// merged tables together with the optional plots and PDF report.
package summary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/mdsummary/internal/analysis"
	"github.com/user/mdsummary/internal/config"
	"github.com/user/mdsummary/internal/parser"
	"github.com/user/mdsummary/internal/report"
)

// ErrTooFewRuns means a table had fewer contributing runs than required.
var ErrTooFewRuns = errors.New("too few contributing runs")

// CoverageImage is the file name of the coverage heatmap in the output
// directory.
const CoverageImage = "coverage.png"

// Options configures an Aggregator.
type Options struct {
	Extension       string
	CommentPrefixes []string
	OutputDir       string // empty: the root directory
	Format          report.TableFormat
	Workers         int
	MinRuns         int
	Runs            []string // restrict to these run labels
	Plots           bool
	ReportPath      string // relative paths are resolved against the output directory
}

// DefaultOptions mirrors config.Default.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig maps a validated configuration to Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Extension:       cfg.Input.Extension,
		CommentPrefixes: cfg.Input.CommentPrefixes,
		OutputDir:       cfg.Output.Dir,
		Format: report.TableFormat{
			Extension: cfg.Output.Extension,
			Delimiter: cfg.DelimiterRune(),
			NullToken: cfg.Output.NullToken,
		},
		Workers:    cfg.Aggregate.Workers,
		MinRuns:    cfg.Aggregate.MinRuns,
		Plots:      cfg.Output.Plots,
		ReportPath: cfg.Output.Report,
	}
}

// TableResult describes a written table.
type TableResult struct {
	Pattern      string
	Path         string
	PlotPath     string
	Rows         int
	Runs         []string
	ReferenceRun string
	Stats        []analysis.ColumnStats
	Skipped      []analysis.RunSkip

	plot []byte
}

// PatternFailure records a pattern that produced no table.
type PatternFailure struct {
	Pattern string
	Err     error
}

// Summary is the outcome of one aggregation.
type Summary struct {
	ID           string
	Root         string
	OutputDir    string
	Started      time.Time
	Runs         []string
	Patterns     []string
	Tables       []TableResult    // sorted by pattern
	Failures     []PatternFailure // sorted by pattern
	CoveragePath string
	ReportPath   string
}

// Aggregator runs aggregations. It holds no state between runs and may be
// reused.
type Aggregator struct {
	opts    Options
	parser  *parser.Parser
	aligner *analysis.Aligner
	logger  *zap.Logger
}

// New creates an Aggregator. A nil logger discards all diagnostics.
func New(opts Options, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MinRuns < 1 {
		opts.MinRuns = 1
	}
	if opts.Format.Extension == "" {
		opts.Format = report.DefaultTableFormat()
	}
	p := parser.New(parser.WithCommentPrefixes(opts.CommentPrefixes...), parser.WithLogger(logger))
	return &Aggregator{
		opts:    opts,
		parser:  p,
		aligner: analysis.NewAligner(p, logger),
		logger:  logger,
	}
}

// Run aggregates every result file found under root. Per-pattern problems
// are recorded in the summary; the returned error is non-nil only when the
// root cannot be read or ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context, root string) (*Summary, error) {
	sum := &Summary{
		ID:      uuid.NewString(),
		Root:    root,
		Started: time.Now(),
	}
	sum.OutputDir = a.opts.OutputDir
	if sum.OutputDir == "" {
		sum.OutputDir = root
	}
	log := a.logger.With(zap.String("run_id", sum.ID))
	log.Info("starting summary analysis", zap.String("root", root))

	layout, err := analysis.Discover(root, analysis.DiscoverOptions{
		Extension: a.opts.Extension,
		Only:      a.opts.Runs,
	}, log)
	if err != nil {
		log.Error("cannot read root directory", zap.Error(err))
		return nil, err
	}
	sum.Runs = layout.Runs
	sum.Patterns = layout.Patterns
	if len(layout.Patterns) == 0 {
		log.Info("summary analysis completed", zap.Int("tables", 0))
		return sum, nil
	}

	if err := os.MkdirAll(sum.OutputDir, 0o755); err != nil {
		// every table write below fails and is recorded per pattern
		log.Error("cannot create output directory", zap.String("dir", sum.OutputDir), zap.Error(err))
	}
	writer := report.NewTableWriter(sum.OutputDir, a.opts.Format, log)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(a.opts.Workers)
	for _, pattern := range layout.Patterns {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := a.processPattern(ctx, layout, pattern, writer, log)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sum.Failures = append(sum.Failures, PatternFailure{Pattern: pattern, Err: err})
				return nil
			}
			sum.Tables = append(sum.Tables, res)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(sum.Tables, func(i, j int) bool { return sum.Tables[i].Pattern < sum.Tables[j].Pattern })
	sort.Slice(sum.Failures, func(i, j int) bool { return sum.Failures[i].Pattern < sum.Failures[j].Pattern })

	if err := ctx.Err(); err != nil {
		log.Warn("summary analysis cancelled", zap.Error(err))
		return sum, err
	}

	a.writeExtras(sum, log)
	log.Info("summary analysis completed",
		zap.Int("tables", len(sum.Tables)),
		zap.Int("failures", len(sum.Failures)))
	return sum, nil
}

// processPattern aligns and writes one pattern. A panic anywhere below is
// turned into an error so the other patterns are unaffected.
func (a *Aggregator) processPattern(ctx context.Context, layout *analysis.Layout, pattern string,
	writer *report.TableWriter, log *zap.Logger) (res TableResult, err error) {
	log = log.With(zap.String("pattern", pattern))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing %s: %v", pattern, r)
		}
		if err != nil {
			log.Warn("no table generated", zap.Error(err))
		}
	}()

	if err := ctx.Err(); err != nil {
		return res, err
	}
	log.Info("processing result file")

	table, err := a.aligner.Align(layout.Root, pattern, layout.Runs)
	if err != nil {
		return res, err
	}
	if len(table.Columns) < a.opts.MinRuns {
		return res, fmt.Errorf("%s: %w: %d of %d", pattern, ErrTooFewRuns, len(table.Columns), a.opts.MinRuns)
	}

	path, err := writer.Write(table)
	if err != nil {
		return res, err
	}

	res = TableResult{
		Pattern:      pattern,
		Path:         path,
		Rows:         table.Len(),
		Runs:         table.Labels(),
		ReferenceRun: table.ReferenceRun,
		Stats:        analysis.DescribeTable(table),
		Skipped:      table.Skipped,
	}
	for _, st := range res.Stats {
		log.Debug("column statistics",
			zap.String("run", st.Label),
			zap.Int("values", st.Count),
			zap.Float64("coverage", st.Coverage),
			zap.Float64("mean", st.Mean),
			zap.Float64("std", st.StdDev))
	}

	if a.opts.Plots {
		a.writePlot(&res, table, writer, log)
	}
	return res, nil
}

// writePlot failures only cost the image; the table is already written.
func (a *Aggregator) writePlot(res *TableResult, table *analysis.AlignedTable, writer *report.TableWriter, log *zap.Logger) {
	img, err := report.CreateSeriesPlot(table)
	if err != nil {
		log.Warn("plot not generated", zap.Error(err))
		return
	}
	path := filepath.Join(filepath.Dir(writer.Path(table.Pattern)), table.Stem()+".png")
	if err := writeBytes(path, img); err != nil {
		log.Warn("plot not written", zap.Error(err))
		return
	}
	res.PlotPath = path
	res.plot = img
}

// writeExtras produces the coverage heatmap and the PDF report.
func (a *Aggregator) writeExtras(sum *Summary, log *zap.Logger) {
	var coverage []byte
	if a.opts.Plots && len(sum.Tables) > 0 {
		rows := make([]report.CoverageRow, 0, len(sum.Tables))
		for _, t := range sum.Tables {
			rows = append(rows, report.CoverageRow{Pattern: t.Pattern, Stats: t.Stats})
		}
		img, err := report.CreateCoverageHeatmap(rows, sum.Runs)
		if err != nil {
			log.Warn("coverage heatmap not generated", zap.Error(err))
		} else {
			coverage = img
			a.writeCoverage(sum, img, log)
		}
	}

	if a.opts.ReportPath == "" {
		return
	}
	path := a.opts.ReportPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(sum.OutputDir, path)
	}
	if err := report.BuildPDFReport(path, reportData(sum, coverage)); err != nil {
		log.Error("report not generated", zap.String("file", path), zap.Error(err))
		return
	}
	sum.ReportPath = path
	log.Info("report generated", zap.String("file", path))
}

// writeCoverage stores the heatmap as coverage.png unless a result file
// plot already has that name; the report still embeds it either way.
func (a *Aggregator) writeCoverage(sum *Summary, img []byte, log *zap.Logger) {
	path := filepath.Join(sum.OutputDir, CoverageImage)
	for _, t := range sum.Tables {
		if t.PlotPath == path {
			log.Warn("coverage heatmap not written, name taken by a result plot",
				zap.String("file", path), zap.String("pattern", t.Pattern))
			return
		}
	}
	if err := writeBytes(path, img); err != nil {
		log.Warn("coverage heatmap not written", zap.Error(err))
		return
	}
	sum.CoveragePath = path
}

func reportData(sum *Summary, coverage []byte) report.ReportData {
	data := report.ReportData{
		RunID:     sum.ID,
		Root:      sum.Root,
		Generated: sum.Started,
		Runs:      sum.Runs,
		Plots:     make(map[string][]byte),
		Coverage:  coverage,
	}
	for _, t := range sum.Tables {
		data.Tables = append(data.Tables, report.TableSummary{
			Pattern:      t.Pattern,
			Path:         t.Path,
			ReferenceRun: t.ReferenceRun,
			Rows:         t.Rows,
			Stats:        t.Stats,
			Skipped:      t.Skipped,
		})
		if len(t.plot) > 0 {
			data.Plots[t.Pattern] = t.plot
		}
	}
	for _, f := range sum.Failures {
		data.Failures = append(data.Failures, report.FailureSummary{Pattern: f.Pattern, Reason: f.Err.Error()})
	}
	return data
}

func writeBytes(path string, data []byte) error {
	return report.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
