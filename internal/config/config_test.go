package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ".xvg", cfg.Input.Extension)
	assert.Equal(t, []string{"#", "@"}, cfg.Input.CommentPrefixes)
	assert.Equal(t, ".csv", cfg.Output.Extension)
	assert.Equal(t, ',', cfg.DelimiterRune())
	assert.Empty(t, cfg.Output.NullToken)
	assert.Equal(t, 1, cfg.Aggregate.Workers)
	assert.Equal(t, 1, cfg.Aggregate.MinRuns)

	d, err := cfg.DebounceDuration()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mdsummary.yaml")

	cfg := Default()
	cfg.Output.Delimiter = "\t"
	cfg.Output.NullToken = "NA"
	cfg.Output.Plots = true
	cfg.Aggregate.Workers = 4
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, '\t', loaded.DelimiterRune())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  report: summary.pdf\naggregate:\n  min_runs: 2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "summary.pdf", cfg.Output.Report)
	assert.Equal(t, 2, cfg.Aggregate.MinRuns)
	assert.Equal(t, ".xvg", cfg.Input.Extension)
	assert.Equal(t, ",", cfg.Output.Delimiter)
	assert.Equal(t, 1, cfg.Aggregate.Workers)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("input: [unclosed"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("aggregate:\n  workers: 0\n"), 0o644))
	_, err = Load(invalid)
	assert.ErrorContains(t, err, "aggregate.workers")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"input extension without dot": func(c *Config) { c.Input.Extension = "xvg" },
		"input double extension":      func(c *Config) { c.Input.Extension = ".xvg.gz" },
		"output extension empty":      func(c *Config) { c.Output.Extension = "" },
		"same extensions":             func(c *Config) { c.Output.Extension = ".xvg" },
		"multi char delimiter":        func(c *Config) { c.Output.Delimiter = ";;" },
		"quote delimiter":             func(c *Config) { c.Output.Delimiter = `"` },
		"null token newline":          func(c *Config) { c.Output.NullToken = "a\nb" },
		"min runs":                    func(c *Config) { c.Aggregate.MinRuns = 0 },
		"debounce":                    func(c *Config) { c.Watch.Debounce = "soon" },
		"negative debounce":           func(c *Config) { c.Watch.Debounce = "-1s" },
		"log level":                   func(c *Config) { c.Logging.Level = "trace" },
		"log format":                  func(c *Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
