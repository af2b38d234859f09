package analysis

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/user/mdsummary/internal/parser"
)

var (
	// ErrMissingFile means the run has no file for the pattern.
	ErrMissingFile = errors.New("result file missing")
	// ErrEmptyFile means the file parsed to the empty matrix.
	ErrEmptyFile = errors.New("no valid data extracted")
	// ErrInsufficientColumns means the file cannot provide both a timeline
	// and a value series.
	ErrInsufficientColumns = errors.New("fewer than 2 columns")
	// ErrNoReferenceTimeline means no run contributed to the pattern; no
	// table is produced for it.
	ErrNoReferenceTimeline = errors.New("no reference timeline")
)

// MatrixSource parses one result file. *parser.Parser implements it.
type MatrixSource interface {
	ParseFile(path string) (*parser.ResultMatrix, error)
}

// Aligner builds AlignedTables for single patterns.
type Aligner struct {
	source MatrixSource
	logger *zap.Logger
}

// NewAligner returns an Aligner reading files through source.
func NewAligner(source MatrixSource, logger *zap.Logger) *Aligner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aligner{source: source, logger: logger}
}

type series struct {
	timeline []parser.Cell
	values   []parser.Cell
}

// Align collects the second column of root/<run>/<pattern> for every run and
// aligns the series on the longest first column seen. Runs are visited in
// lexicographic order and the first run reaching the maximum length provides
// the reference timeline. Runs that yield nothing usable are recorded in
// Skipped and get no column.
func (a *Aligner) Align(root, pattern string, runs []string) (*AlignedTable, error) {
	ordered := append([]string(nil), runs...)
	sort.Strings(ordered)

	log := a.logger.With(zap.String("pattern", pattern))
	table := &AlignedTable{Pattern: pattern}

	// only runs with usable data are ever inserted
	collected := make(map[string]series, len(ordered))
	var reference []parser.Cell
	for _, run := range ordered {
		s, err := a.load(filepath.Join(root, run, pattern))
		if err != nil {
			table.Skipped = append(table.Skipped, RunSkip{Run: run, Reason: err})
			if errors.Is(err, ErrMissingFile) {
				log.Debug("file not found, run skipped", zap.String("run", run))
			} else {
				log.Warn("run skipped", zap.String("run", run), zap.Error(err))
			}
			continue
		}
		collected[run] = s
		if len(s.timeline) > len(reference) {
			reference = s.timeline
			table.ReferenceRun = run
		}
		log.Debug("series read", zap.String("run", run), zap.Int("rows", len(s.values)))
	}

	if len(collected) == 0 {
		return table, fmt.Errorf("%s: %w", pattern, ErrNoReferenceTimeline)
	}

	table.X = reference
	labels := make([]string, 0, len(collected))
	for run := range collected {
		labels = append(labels, run)
	}
	sort.Strings(labels)
	for _, run := range labels {
		values := collected[run].values
		table.Columns = append(table.Columns, Column{
			Label: run,
			Cells: padCells(values, len(reference)),
			Rows:  len(values),
		})
	}
	return table, nil
}

func (a *Aligner) load(path string) (series, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return series{}, ErrMissingFile
		}
		return series{}, err
	}
	if info.IsDir() {
		return series{}, fmt.Errorf("%s is a directory: %w", path, ErrMissingFile)
	}

	m, err := a.source.ParseFile(path)
	if err != nil {
		return series{}, err
	}
	if m.Empty() {
		return series{}, ErrEmptyFile
	}
	if _, cols := m.Dims(); cols < 2 {
		return series{}, ErrInsufficientColumns
	}
	return series{timeline: m.Column(0), values: m.Column(1)}, nil
}

// padCells extends cells to n entries with the null sentinel.
func padCells(cells []parser.Cell, n int) []parser.Cell {
	if len(cells) >= n {
		return cells
	}
	out := make([]parser.Cell, n)
	copy(out, cells)
	return out
}
