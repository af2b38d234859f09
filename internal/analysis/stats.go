package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/user/mdsummary/internal/parser"
)

// validValues drops null and NaN cells.
func validValues(cells []parser.Cell) []float64 {
	out := make([]float64, 0, len(cells))
	for _, c := range cells {
		if c.IsNull() || math.IsNaN(c.Value) {
			continue
		}
		out = append(out, c.Value)
	}
	return out
}

// Describe computes the statistics of one column against a table of n rows.
func Describe(label string, cells []parser.Cell, n int) ColumnStats {
	values := validValues(cells)
	s := ColumnStats{
		Label:  label,
		Count:  len(values),
		Mean:   math.NaN(),
		StdDev: math.NaN(),
		Min:    math.NaN(),
		Max:    math.NaN(),
	}
	if n > 0 {
		s.Coverage = float64(len(values)) / float64(n)
	}
	if len(values) == 0 {
		return s
	}
	// a single point has zero spread
	s.Mean, s.StdDev = stat.PopMeanStdDev(values, nil)
	if len(values) == 1 {
		s.StdDev = 0
	}
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	return s
}

// DescribeTable returns one ColumnStats per run column, in table order.
func DescribeTable(t *AlignedTable) []ColumnStats {
	out := make([]ColumnStats, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, Describe(c.Label, c.Cells, t.Len()))
	}
	return out
}
