package report

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/user/mdsummary/internal/analysis"
	"github.com/user/mdsummary/internal/parser"
)

// ErrWriteFailure wraps every error raised while persisting an artifact.
var ErrWriteFailure = errors.New("write failed")

// TableFormat controls the delimited text encoding of aligned tables.
type TableFormat struct {
	Extension string // with the dot
	Delimiter rune
	NullToken string // written for null cells
}

// DefaultTableFormat writes comma separated .csv files with empty fields
// for missing values.
func DefaultTableFormat() TableFormat {
	return TableFormat{Extension: ".csv", Delimiter: ','}
}

// TableWriter persists aligned tables into one directory.
type TableWriter struct {
	dir    string
	format TableFormat
	logger *zap.Logger
}

// NewTableWriter returns a writer placing tables into dir.
func NewTableWriter(dir string, format TableFormat, logger *zap.Logger) *TableWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TableWriter{dir: dir, format: format, logger: logger}
}

// Path returns the file a table for pattern is written to.
func (w *TableWriter) Path(pattern string) string {
	return filepath.Join(w.dir, analysis.PatternStem(pattern)+w.format.Extension)
}

// Write stores t as <stem><extension>. The file is replaced atomically, so
// a concurrent reader sees either the previous table or the complete new one.
func (w *TableWriter) Write(t *analysis.AlignedTable) (string, error) {
	path := w.Path(t.Pattern)
	for _, label := range t.Labels() {
		if label == analysis.XLabel {
			w.logger.Warn("run label collides with the timeline header",
				zap.String("pattern", t.Pattern), zap.String("run", label))
		}
	}
	err := WriteFileAtomic(path, func(out io.Writer) error {
		return w.Encode(out, t)
	})
	if err != nil {
		return "", err
	}
	w.logger.Info("table written",
		zap.String("pattern", t.Pattern),
		zap.String("file", path),
		zap.Int("rows", t.Len()),
		zap.Int("runs", len(t.Columns)))
	return path, nil
}

// Encode writes t as delimited text: header "x" followed by the run labels,
// then one line per timeline entry.
func (w *TableWriter) Encode(out io.Writer, t *analysis.AlignedTable) error {
	cw := csv.NewWriter(out)
	cw.Comma = w.format.Delimiter

	record := make([]string, 0, len(t.Columns)+1)
	record = append(record, analysis.XLabel)
	record = append(record, t.Labels()...)
	if err := cw.Write(record); err != nil {
		return err
	}

	for i := 0; i < t.Len(); i++ {
		record = record[:0]
		record = append(record, w.cell(t.X[i]))
		for _, c := range t.Columns {
			record = append(record, w.cell(c.Cells[i]))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *TableWriter) cell(c parser.Cell) string {
	if c.IsNull() {
		return w.format.NullToken
	}
	return FormatNumber(c.Value)
}

// FormatNumber writes v with the fewest digits that read back exactly.
// Magnitudes in [1e-4, 1e16) are written in plain decimal notation, as
// pandas writes them, so energies like -1523456 stay readable; everything
// else, NaN and infinities included, uses exponent notation.
func FormatNumber(v float64) string {
	if abs := math.Abs(v); abs == 0 || (abs >= 1e-4 && abs < 1e16) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteFileAtomic fills a temporary file next to path through fill, syncs it
// and renames it over path. On any error the temporary file is removed and
// the returned error wraps ErrWriteFailure.
func WriteFileAtomic(path string, fill func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailure, path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			err = fmt.Errorf("%w: %s: %w", ErrWriteFailure, path, err)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = fill(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
