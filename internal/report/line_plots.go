package report

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/user/mdsummary/internal/analysis"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var plotColors = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 255}, // Blue
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 255}, // Orange
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 255}, // Green
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 255}, // Red
	color.RGBA{R: 0x94, G: 0x67, B: 0xbd, A: 255}, // Purple
	color.RGBA{R: 0x8c, G: 0x56, B: 0x4b, A: 255}, // Brown
	color.RGBA{R: 0xe3, G: 0x77, B: 0xc2, A: 255}, // Pink
	color.RGBA{R: 0x17, G: 0xbe, B: 0xcf, A: 255}, // Teal
}

// CreateSeriesPlot draws every run of an aligned table against its
// reference timeline and returns the PNG image. Rows where either x or the
// run's value is missing are left out of that run's line.
func CreateSeriesPlot(t *analysis.AlignedTable) ([]byte, error) {
	if t == nil || t.Len() == 0 || len(t.Columns) == 0 {
		return nil, fmt.Errorf("no aligned data to plot")
	}

	p := plot.New()
	p.Title.Text = t.Stem()
	p.X.Label.Text = analysis.XLabel
	p.Y.Label.Text = t.Stem()
	p.Add(plotter.NewGrid())

	linesPlotted := false
	for i, col := range t.Columns {
		pts := make(plotter.XYs, 0, t.Len())
		for row, c := range col.Cells {
			x := t.X[row]
			if c.IsNull() || x.IsNull() || !finite(c.Value) || !finite(x.Value) {
				continue
			}
			pts = append(pts, plotter.XY{X: x.Value, Y: c.Value})
		}
		if len(pts) == 0 {
			continue
		}
		linesPlotted = true

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create line for %s: %w", col.Label, err)
		}
		line.Color = plotColors[i%len(plotColors)]
		line.LineStyle.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(col.Label, line)
	}
	if !linesPlotted {
		return nil, fmt.Errorf("no finite points to plot for %s", t.Pattern)
	}

	p.Legend.Top = true
	p.Legend.XOffs = vg.Points(-10)

	return renderPNG(p, vg.Points(800), vg.Points(400))
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func renderPNG(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	writer, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %w", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %w", err)
	}
	return buf.Bytes(), nil
}
