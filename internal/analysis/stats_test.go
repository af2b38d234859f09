package analysis

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"

	"github.com/user/mdsummary/internal/parser"
)

func TestDescribe(t *testing.T) {
	cells := []parser.Cell{parser.Num(1), parser.Num(3), parser.Null, parser.Num(math.NaN()), parser.Num(5), parser.Null}
	got := Describe("run1", cells, len(cells))
	want := ColumnStats{
		Label:    "run1",
		Count:    3,
		Coverage: 0.5,
		Mean:     3,
		StdDev:   math.Sqrt(8.0 / 3.0),
		Min:      1,
		Max:      5,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Describe mismatch (-want +got):\n%s", diff)
	}
}

func TestDescribe_Degenerate(t *testing.T) {
	single := Describe("one", []parser.Cell{parser.Num(2.5)}, 4)
	assert.Equal(t, 1, single.Count)
	assert.Equal(t, 0.25, single.Coverage)
	assert.Equal(t, 2.5, single.Mean)
	assert.Zero(t, single.StdDev)

	none := Describe("none", []parser.Cell{parser.Null, parser.Null}, 2)
	want := ColumnStats{Label: "none", Mean: math.NaN(), StdDev: math.NaN(), Min: math.NaN(), Max: math.NaN()}
	if diff := cmp.Diff(want, none, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("Describe mismatch (-want +got):\n%s", diff)
	}
}

func TestDescribeTable(t *testing.T) {
	table := &AlignedTable{
		Pattern: "rmsd.xvg",
		X:       []parser.Cell{parser.Num(0), parser.Num(1)},
		Columns: []Column{
			{Label: "a", Cells: []parser.Cell{parser.Num(1), parser.Num(1)}, Rows: 2},
			{Label: "b", Cells: []parser.Cell{parser.Num(4), parser.Null}, Rows: 1},
		},
	}
	stats := DescribeTable(table)
	assert.Len(t, stats, 2)
	assert.Equal(t, "a", stats[0].Label)
	assert.Equal(t, 1.0, stats[0].Coverage)
	assert.Equal(t, "b", stats[1].Label)
	assert.Equal(t, 0.5, stats[1].Coverage)
}
