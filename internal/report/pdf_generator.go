package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/user/mdsummary/internal/analysis"
)

const (
	inchToMm               = 25.4
	pdfPageWidthLandscape  = 11 * inchToMm // Letter landscape
	pdfPageHeightLandscape = 8.5 * inchToMm
	pdfMargin              = 0.5 * inchToMm
	pdfContentWidth        = pdfPageWidthLandscape - (2 * pdfMargin)
	pdfContentBottom       = pdfPageHeightLandscape - pdfMargin
)

// TableSummary describes one written table in the report.
type TableSummary struct {
	Pattern      string
	Path         string
	ReferenceRun string
	Rows         int
	Stats        []analysis.ColumnStats
	Skipped      []analysis.RunSkip
}

// FailureSummary is a pattern that produced no table.
type FailureSummary struct {
	Pattern string
	Reason  string
}

// ReportData is everything the PDF report shows about one aggregation.
type ReportData struct {
	RunID     string
	Root      string
	Generated time.Time
	Runs      []string
	Tables    []TableSummary
	Failures  []FailureSummary
	Plots     map[string][]byte // PNG per pattern
	Coverage  []byte            // PNG coverage heatmap
}

// pdfStyler holds reusable styling and state for PDF generation
type pdfStyler struct {
	pdf        *gofpdf.Fpdf
	styles     map[string]func()
	lineHeight float64
	currentY   float64 // manually tracked Y position for flowing content
	images     int
}

func newPDFStyler(pdf *gofpdf.Fpdf) *pdfStyler {
	s := &pdfStyler{
		pdf:        pdf,
		styles:     make(map[string]func()),
		lineHeight: 6, // mm
		currentY:   pdfMargin,
	}
	s.defineStyles()
	return s
}

func (s *pdfStyler) defineStyles() {
	s.styles["h1"] = func() {
		s.pdf.SetFont("Arial", "B", 16)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["h2"] = func() {
		s.pdf.SetFont("Arial", "B", 14)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["normal"] = func() {
		s.pdf.SetFont("Arial", "", 10)
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableHeader"] = func() {
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetFillColor(200, 200, 200) // Light grey
		s.pdf.SetTextColor(0, 0, 0)
	}
	s.styles["tableCell"] = func() {
		s.pdf.SetFont("Arial", "", 9)
		s.pdf.SetTextColor(50, 50, 50)
	}
	s.styles["tableCellRed"] = func() { // incomplete coverage, failures
		s.pdf.SetFont("Arial", "B", 9)
		s.pdf.SetTextColor(200, 0, 0)
	}
}

func (s *pdfStyler) applyStyle(styleName string) {
	if fn, ok := s.styles[styleName]; ok {
		fn()
	} else {
		s.styles["normal"]()
	}
}

func (s *pdfStyler) newPage() {
	s.pdf.AddPage()
	s.currentY = pdfMargin
}

func (s *pdfStyler) checkAddPage(neededHeight float64) {
	if s.currentY+neededHeight > pdfContentBottom {
		s.newPage()
	}
}

func (s *pdfStyler) writeParagraph(text string, styleName string, align string) {
	s.applyStyle(styleName)
	lines := s.pdf.SplitLines([]byte(text), pdfContentWidth)
	s.checkAddPage(float64(len(lines)) * s.lineHeight)

	s.pdf.SetXY(pdfMargin, s.currentY)
	s.pdf.MultiCell(pdfContentWidth, s.lineHeight, text, "", align, false)
	s.currentY = s.pdf.GetY() + 1 // small gap after paragraph
}

func (s *pdfStyler) addSpacer(height float64) {
	s.checkAddPage(height)
	s.currentY += height
}

// writeTable draws a bordered table whose column widths are fractions of the
// content width. highlight marks cells drawn in the red style.
func (s *pdfStyler) writeTable(headers []string, widthsRel []float64, rows [][]string, highlight func(row, col int) bool) {
	widths := make([]float64, len(widthsRel))
	for i, rel := range widthsRel {
		widths[i] = rel * pdfContentWidth
	}

	drawHeader := func() {
		s.applyStyle("tableHeader")
		x := pdfMargin
		for i, h := range headers {
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[i], s.lineHeight, h, "1", 0, "C", true, 0, "")
			x += widths[i]
		}
		s.currentY += s.lineHeight
	}

	s.checkAddPage(2 * s.lineHeight)
	drawHeader()
	for r, row := range rows {
		if s.currentY+s.lineHeight > pdfContentBottom {
			s.newPage()
			drawHeader()
		}
		x := pdfMargin
		for c, cell := range row {
			if highlight != nil && highlight(r, c) {
				s.applyStyle("tableCellRed")
			} else {
				s.applyStyle("tableCell")
			}
			s.pdf.SetXY(x, s.currentY)
			s.pdf.CellFormat(widths[c], s.lineHeight, cell, "1", 0, "C", false, 0, "")
			x += widths[c]
		}
		s.currentY += s.lineHeight
	}
}

func (s *pdfStyler) addImage(imageBytes []byte, width float64, height float64, caption string) {
	s.images++
	name := "img" + strconv.Itoa(s.images)
	s.pdf.RegisterImageReader(name, "PNG", bytes.NewReader(imageBytes))

	captionHeight := 0.0
	if caption != "" {
		captionHeight = s.lineHeight + 1
	}
	s.checkAddPage(height + captionHeight)

	s.pdf.Image(name, pdfMargin, s.currentY, width, height, false, "PNG", 0, "")
	s.currentY += height

	if caption != "" {
		s.addSpacer(1)
		s.writeParagraph(caption, "normal", "C")
	}
	s.addSpacer(2)
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// BuildPDFReport renders the aggregation summary to path, atomically.
func BuildPDFReport(path string, data ReportData) error {
	pdf := gofpdf.New("L", "mm", "Letter", "") // Landscape, mm, Letter size
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	if !data.Generated.IsZero() {
		pdf.SetCreationDate(data.Generated)
	}
	pdf.SetTitle("MD run summary", true)
	pdf.AddPage()

	styler := newPDFStyler(pdf)

	styler.writeParagraph(fmt.Sprintf("MD Run Summary (%d Runs, %d Tables)", len(data.Runs), len(data.Tables)), "h1", "C")
	styler.addSpacer(5)
	styler.writeParagraph("Root: "+data.Root, "normal", "L")
	if data.RunID != "" {
		styler.writeParagraph("Aggregation ID: "+data.RunID, "normal", "L")
	}
	if !data.Generated.IsZero() {
		styler.writeParagraph("Generated: "+data.Generated.Format(time.RFC3339), "normal", "L")
	}
	if len(data.Runs) > 0 {
		styler.writeParagraph("Runs: "+strings.Join(data.Runs, ", "), "normal", "L")
	}
	styler.addSpacer(5)

	styler.writeParagraph("Merged Tables", "h2", "L")
	if len(data.Tables) > 0 {
		rows := make([][]string, 0, len(data.Tables))
		for _, t := range data.Tables {
			rows = append(rows, []string{
				t.Pattern,
				strconv.Itoa(t.Rows),
				strconv.Itoa(len(t.Stats)),
				t.ReferenceRun,
				t.Path,
			})
		}
		styler.writeTable(
			[]string{"Result File", "Rows", "Runs", "Reference Run", "Output"},
			[]float64{0.2, 0.08, 0.08, 0.14, 0.5},
			rows, nil)
	} else {
		styler.writeParagraph("No table was written.", "normal", "L")
	}
	styler.addSpacer(5)

	if len(data.Failures) > 0 {
		styler.writeParagraph("Result Files Without Output", "h2", "L")
		rows := make([][]string, 0, len(data.Failures))
		for _, f := range data.Failures {
			rows = append(rows, []string{f.Pattern, f.Reason})
		}
		styler.writeTable([]string{"Result File", "Reason"}, []float64{0.25, 0.75}, rows,
			func(_, col int) bool { return col == 1 })
		styler.addSpacer(5)
	}

	if len(data.Coverage) > 0 {
		styler.newPage()
		styler.writeParagraph("Run Coverage", "h1", "C")
		styler.addSpacer(5)
		imgWidth := pdfContentWidth * 0.9
		styler.addImage(data.Coverage, imgWidth, imgWidth*0.5, "Fraction of each reference timeline covered by each run")
	}

	statHeaders := []string{"Run", "Values", "Coverage", "Mean", "Std Dev", "Min", "Max"}
	statWidths := []float64{0.22, 0.1, 0.1, 0.145, 0.145, 0.145, 0.145}
	for _, t := range data.Tables {
		styler.newPage()
		styler.writeParagraph(t.Pattern, "h1", "L")
		styler.writeParagraph(fmt.Sprintf("%d rows, reference timeline from %s", t.Rows, t.ReferenceRun), "normal", "L")
		styler.addSpacer(2)

		rows := make([][]string, 0, len(t.Stats))
		for _, st := range t.Stats {
			rows = append(rows, []string{
				st.Label,
				strconv.Itoa(st.Count),
				fmt.Sprintf("%.1f%%", st.Coverage*100),
				formatStat(st.Mean),
				formatStat(st.StdDev),
				formatStat(st.Min),
				formatStat(st.Max),
			})
		}
		stats := t.Stats
		styler.writeTable(statHeaders, statWidths, rows, func(row, col int) bool {
			return col == 2 && stats[row].Coverage < 1
		})
		styler.addSpacer(3)

		if len(t.Skipped) > 0 {
			skipped := make([]string, 0, len(t.Skipped))
			for _, sk := range t.Skipped {
				skipped = append(skipped, fmt.Sprintf("%s (%v)", sk.Run, sk.Reason))
			}
			styler.writeParagraph("Skipped runs: "+strings.Join(skipped, "; "), "normal", "L")
			styler.addSpacer(2)
		}

		if img, ok := data.Plots[t.Pattern]; ok && len(img) > 0 {
			imgWidth := pdfContentWidth * 0.8
			styler.addImage(img, imgWidth, imgWidth*0.5, analysis.PatternStem(t.Pattern)+" by run")
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailure, path, err)
	}
	return WriteFileAtomic(path, func(w io.Writer) error {
		return pdf.Output(w)
	})
}
