package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/user/mdsummary/internal/parser"
)

// xvg renders a two-column series of n rows with an xvg style header.
// Row i holds time i*step and value offset+i.
func xvg(n int, step, offset float64) string {
	var b strings.Builder
	b.WriteString("# This file was created by gmx rms\n")
	b.WriteString("@    title \"RMSD\"\n")
	b.WriteString("@    xaxis  label \"Time (ns)\"\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%g %g\n", float64(i)*step, offset+float64(i))
	}
	return b.String()
}

// put writes root/run/name, creating the run directory.
func put(t *testing.T, root, run, name, content string) {
	t.Helper()
	dir := filepath.Join(root, run)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func newTestAligner(logger *zap.Logger) *Aligner {
	return NewAligner(parser.New(parser.WithLogger(logger)), logger)
}

func nulls(cells []parser.Cell) int {
	n := 0
	for _, c := range cells {
		if c.IsNull() {
			n++
		}
	}
	return n
}
