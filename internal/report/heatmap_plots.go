package report

import (
	"fmt"
	"image/color"
	"math"

	"github.com/user/mdsummary/internal/analysis"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// CoverageRow holds the column statistics of one written table.
type CoverageRow struct {
	Pattern string
	Stats   []analysis.ColumnStats
}

// colorList implements palette.Palette over a fixed set of colors.
type colorList []color.Color

func (c colorList) Colors() []color.Color { return c }

// Red for truncated runs through green for runs covering the whole timeline.
var coveragePalette = colorList{
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 255},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 255},
	color.RGBA{R: 0xdb, G: 0xdb, B: 0x8d, A: 255},
	color.RGBA{R: 0x98, G: 0xdf, B: 0x8a, A: 255},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 255},
}

// coverageGrid is a pattern x run matrix of coverage fractions; runs that
// did not contribute to a pattern are NaN.
type coverageGrid struct {
	z    [][]float64 // [pattern][run]
	runs int
}

func (g coverageGrid) Dims() (c, r int)   { return g.runs, len(g.z) }
func (g coverageGrid) Z(c, r int) float64 { return g.z[r][c] }
func (g coverageGrid) X(c int) float64    { return float64(c) }
func (g coverageGrid) Y(r int) float64    { return float64(r) }

// CreateCoverageHeatmap draws, for every written table, which fraction of
// the reference timeline each run covers. Runs absent from a table are
// drawn in light gray.
func CreateCoverageHeatmap(rows []CoverageRow, runs []string) ([]byte, error) {
	if len(rows) == 0 || len(runs) == 0 {
		return nil, fmt.Errorf("no coverage data to plot")
	}

	runIndex := make(map[string]int, len(runs))
	for i, r := range runs {
		runIndex[r] = i
	}

	grid := coverageGrid{z: make([][]float64, len(rows)), runs: len(runs)}
	for r, row := range rows {
		line := make([]float64, len(runs))
		for i := range line {
			line[i] = math.NaN()
		}
		for _, s := range row.Stats {
			if c, ok := runIndex[s.Label]; ok {
				line[c] = s.Coverage
			}
		}
		grid.z[r] = line
	}

	p := plot.New()
	p.Title.Text = "Run coverage of the reference timeline"
	p.X.Label.Text = "Run"
	p.Y.Label.Text = "Result file"

	xTicks := make([]plot.Tick, len(runs))
	for i, name := range runs {
		xTicks[i] = plot.Tick{Value: float64(i), Label: name}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.X.Min = -0.5
	p.X.Max = float64(len(runs)) - 0.5

	yTicks := make([]plot.Tick, len(rows))
	for i, row := range rows {
		yTicks[i] = plot.Tick{Value: float64(i), Label: analysis.PatternStem(row.Pattern)}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.Y.Min = -0.5
	p.Y.Max = float64(len(rows)) - 0.5

	hm := plotter.NewHeatMap(grid, coveragePalette)
	hm.Min = 0
	hm.Max = 1
	hm.NaN = color.Gray{Y: 200}
	p.Add(hm)

	width := vg.Points(math.Max(400, float64(60*len(runs)+200)))
	height := vg.Points(math.Max(250, float64(30*len(rows)+150)))
	return renderPNG(p, width, height)
}
