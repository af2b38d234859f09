package parser

// DefaultExtension is the file extension of the result files written by the
// simulation engine (GROMACS xvg time series).
const DefaultExtension = ".xvg"

// DefaultCommentPrefixes are the line markers of xvg comments and grace
// directives. Lines starting with any of them carry no data.
var DefaultCommentPrefixes = []string{"#", "@"}

// Cell is one entry of a ResultMatrix or of an aligned column.
// A Cell that is not Valid is the null sentinel: there is no data at that
// position. A NaN read from a file is a valid number and stays one.
type Cell struct {
	Value float64
	Valid bool
}

// Null is the "no data" sentinel used to pad ragged rows and short columns.
var Null = Cell{}

// Num wraps a parsed value.
func Num(v float64) Cell { return Cell{Value: v, Valid: true} }

// IsNull reports whether c is the null sentinel.
func (c Cell) IsNull() bool { return !c.Valid }

// RawLine holds the values extracted from one data line, in order.
// Its length may differ from line to line within the same file.
type RawLine []float64

// ResultMatrix is the parsed content of one result file, padded on the right
// with Null so that every row has the width of the widest line.
// A ResultMatrix is never modified after NewResultMatrix returns; the
// accessors hand out copies.
type ResultMatrix struct {
	Source string // path of the file the matrix was read from
	rows   [][]Cell
	width  int
}

// NewResultMatrix rectangularizes lines. Lines without values are ignored.
// With no usable line the result is the empty matrix.
func NewResultMatrix(source string, lines []RawLine) *ResultMatrix {
	m := &ResultMatrix{Source: source}
	for _, l := range lines {
		if len(l) > m.width {
			m.width = len(l)
		}
	}
	if m.width == 0 {
		return m
	}
	m.rows = make([][]Cell, 0, len(lines))
	for _, l := range lines {
		if len(l) == 0 {
			continue
		}
		row := make([]Cell, m.width)
		for i, v := range l {
			row[i] = Num(v)
		}
		// the remaining cells are already Null
		m.rows = append(m.rows, row)
	}
	return m
}

// Empty reports whether the file produced no usable rows.
func (m *ResultMatrix) Empty() bool { return m == nil || len(m.rows) == 0 }

// Dims returns the number of rows and columns.
func (m *ResultMatrix) Dims() (int, int) {
	if m.Empty() {
		return 0, 0
	}
	return len(m.rows), m.width
}

// At returns the cell at row r, column c.
func (m *ResultMatrix) At(r, c int) Cell { return m.rows[r][c] }

// Row returns a copy of row r.
func (m *ResultMatrix) Row(r int) []Cell {
	return append([]Cell(nil), m.rows[r]...)
}

// Column returns a copy of column c, one cell per row.
func (m *ResultMatrix) Column(c int) []Cell {
	col := make([]Cell, len(m.rows))
	for i, row := range m.rows {
		col[i] = row[c]
	}
	return col
}
