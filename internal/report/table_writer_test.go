package report

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/user/mdsummary/internal/analysis"
	"github.com/user/mdsummary/internal/parser"
)

func nums(vs ...float64) []parser.Cell {
	out := make([]parser.Cell, len(vs))
	for i, v := range vs {
		out[i] = parser.Num(v)
	}
	return out
}

func sampleTable() *analysis.AlignedTable {
	return &analysis.AlignedTable{
		Pattern:      "rmsd.xvg",
		ReferenceRun: "run1",
		X:            nums(0, 0.5, 1e-7),
		Columns: []analysis.Column{
			{Label: "run1", Cells: nums(1.25, math.NaN(), -3), Rows: 3},
			{Label: "run2", Cells: []parser.Cell{parser.Num(2), parser.Null, parser.Null}, Rows: 1},
		},
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name   string
		format TableFormat
		want   string
	}{
		{
			name:   "default",
			format: DefaultTableFormat(),
			want:   "x,run1,run2\n0,1.25,2\n0.5,NaN,\n1e-07,-3,\n",
		},
		{
			name:   "tab with token",
			format: TableFormat{Extension: ".tsv", Delimiter: '\t', NullToken: "NA"},
			want:   "x\trun1\trun2\n0\t1.25\t2\n0.5\tNaN\tNA\n1e-07\t-3\tNA\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewTableWriter(t.TempDir(), tt.format, nil)
			require.NoError(t, w.Encode(&buf, sampleTable()))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "-0"},
		{1.25, "1.25"},
		{-1523456, "-1523456"},
		{-1.5e5, "-150000"},
		{123456789.125, "123456789.125"},
		{0.0001, "0.0001"},
		{2.5e-5, "2.5e-05"},
		{1e-7, "1e-07"},
		{9.5e15, "9500000000000000"},
		{1e16, "1e+16"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "+Inf"},
		{math.Inf(-1), "-Inf"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.in))
		})
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	core, logs := observer.New(zapcore.InfoLevel)
	w := NewTableWriter(dir, DefaultTableFormat(), zap.New(core))

	path, err := w.Write(sampleTable())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rmsd.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x,run1,run2\n0,1.25,2\n0.5,NaN,\n1e-07,-3,\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not remain")

	written := logs.FilterMessage("table written").All()
	require.Len(t, written, 1)
	assert.Equal(t, path, written[0].ContextMap()["file"])
}

func TestWrite_Replaces(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rmsd.csv"), []byte("stale"), 0o644))

	w := NewTableWriter(dir, DefaultTableFormat(), nil)
	path, err := w.Write(sampleTable())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestWrite_Failure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "rmsd.csv"), 0o755))

	w := NewTableWriter(dir, DefaultTableFormat(), nil)
	_, err := w.Write(sampleTable())
	assert.ErrorIs(t, err, ErrWriteFailure)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	w = NewTableWriter(filepath.Join(dir, "missing"), DefaultTableFormat(), nil)
	_, err = w.Write(sampleTable())
	assert.ErrorIs(t, err, ErrWriteFailure)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWrite_HeaderCollision(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	w := NewTableWriter(t.TempDir(), DefaultTableFormat(), zap.New(core))

	tbl := sampleTable()
	tbl.Columns[0].Label = analysis.XLabel
	_, err := w.Write(tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("run label collides with the timeline header").Len())
}

func TestWriteFileAtomic_FillError(t *testing.T) {
	dir := t.TempDir()
	boom := assert.AnError
	err := WriteFileAtomic(filepath.Join(dir, "out.csv"), func(io.Writer) error {
		return boom
	})
	assert.ErrorIs(t, err, ErrWriteFailure)
	assert.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
