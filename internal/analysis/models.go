package analysis

import (
	"path/filepath"
	"strings"

	"github.com/user/mdsummary/internal/parser"
)

// XLabel is the header of the reference timeline column.
const XLabel = "x"

// Layout is the result of scanning a root directory: the run subdirectories
// and the distinct result file names found across them, both sorted.
type Layout struct {
	Root     string
	Runs     []string
	Patterns []string
}

// Column is one run's value series in an AlignedTable.
type Column struct {
	Label string
	Cells []parser.Cell
	Rows  int // rows the run's own file provided, before padding
}

// RunSkip records why a run did not contribute to a table.
type RunSkip struct {
	Run    string
	Reason error
}

// AlignedTable is the merged view of one pattern across runs. X and every
// column have the same length; columns are ordered by label.
type AlignedTable struct {
	Pattern      string
	ReferenceRun string // run whose first column became X
	X            []parser.Cell
	Columns      []Column
	Skipped      []RunSkip
}

// Len returns the number of rows of the table.
func (t *AlignedTable) Len() int { return len(t.X) }

// Labels returns the run labels of the columns in table order.
func (t *AlignedTable) Labels() []string {
	labels := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		labels[i] = c.Label
	}
	return labels
}

// Column looks up the column of a run.
func (t *AlignedTable) Column(label string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Label == label {
			return c, true
		}
	}
	return Column{}, false
}

// Stem returns the pattern without its extension; output files are named
// after it.
func (t *AlignedTable) Stem() string { return PatternStem(t.Pattern) }

// PatternStem strips the last extension of a pattern: "rmsd.xvg" -> "rmsd".
func PatternStem(pattern string) string {
	return strings.TrimSuffix(pattern, filepath.Ext(pattern))
}

// ColumnStats holds descriptive statistics of one aligned column.
// Null and NaN cells are excluded; with Count == 0 the moments are NaN.
type ColumnStats struct {
	Label    string
	Count    int
	Coverage float64 // Count / table length
	Mean     float64
	StdDev   float64 // population standard deviation
	Min      float64
	Max      float64
}
