package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Config holds all mdsummary configuration.
type Config struct {
	// Result files produced by the simulation runs
	Input InputConfig `yaml:"input"`

	// Merged tables and derived artifacts
	Output OutputConfig `yaml:"output"`

	Aggregate AggregateConfig `yaml:"aggregate"`

	Watch WatchConfig `yaml:"watch"`

	Logging LoggingConfig `yaml:"logging"`
}

// InputConfig describes the result files.
type InputConfig struct {
	Extension       string   `yaml:"extension"`        // e.g. ".xvg"
	CommentPrefixes []string `yaml:"comment_prefixes"` // lines starting with these are skipped
}

// OutputConfig describes where and how tables are written.
type OutputConfig struct {
	Dir       string `yaml:"dir"`        // empty: the root directory
	Extension string `yaml:"extension"`  // e.g. ".csv"
	Delimiter string `yaml:"delimiter"`  // single character
	NullToken string `yaml:"null_token"` // written for missing values
	Plots     bool   `yaml:"plots"`      // PNG per pattern plus coverage heatmap
	Report    string `yaml:"report"`     // PDF path; empty disables the report
}

// AggregateConfig tunes the driver.
type AggregateConfig struct {
	Workers int `yaml:"workers"`  // patterns processed concurrently
	MinRuns int `yaml:"min_runs"` // contributing runs needed to write a table
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"` // e.g. "2s"
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	File   string `yaml:"file"`   // empty: stderr
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Extension:       ".xvg",
			CommentPrefixes: []string{"#", "@"},
		},
		Output: OutputConfig{
			Extension: ".csv",
			Delimiter: ",",
		},
		Aggregate: AggregateConfig{
			Workers: 1,
			MinRuns: 1,
		},
		Watch: WatchConfig{
			Debounce: "2s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default value.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if !strings.HasPrefix(c.Input.Extension, ".") || len(c.Input.Extension) < 2 {
		errs = append(errs, fmt.Errorf("input.extension %q must start with a dot", c.Input.Extension))
	} else if strings.Count(c.Input.Extension, ".") > 1 {
		// discovery compares against the last extension of each file name
		errs = append(errs, fmt.Errorf("input.extension %q must be a single extension such as .xvg", c.Input.Extension))
	}
	if !strings.HasPrefix(c.Output.Extension, ".") || len(c.Output.Extension) < 2 {
		errs = append(errs, fmt.Errorf("output.extension %q must start with a dot", c.Output.Extension))
	}
	if c.Output.Extension == c.Input.Extension {
		errs = append(errs, fmt.Errorf("output.extension must differ from input.extension"))
	}
	if utf8.RuneCountInString(c.Output.Delimiter) != 1 {
		errs = append(errs, fmt.Errorf("output.delimiter %q must be a single character", c.Output.Delimiter))
	} else if r := c.DelimiterRune(); r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		errs = append(errs, fmt.Errorf("output.delimiter %q is not allowed", c.Output.Delimiter))
	}
	if strings.ContainsAny(c.Output.NullToken, "\r\n") {
		errs = append(errs, fmt.Errorf("output.null_token must not contain line breaks"))
	}
	if c.Aggregate.Workers < 1 {
		errs = append(errs, fmt.Errorf("aggregate.workers must be at least 1, got %d", c.Aggregate.Workers))
	}
	if c.Aggregate.MinRuns < 1 {
		errs = append(errs, fmt.Errorf("aggregate.min_runs must be at least 1, got %d", c.Aggregate.MinRuns))
	}
	if _, err := c.DebounceDuration(); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not one of console, json", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// DelimiterRune returns the output delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Output.Delimiter)
	return r
}

// DebounceDuration parses watch.debounce.
func (c *Config) DebounceDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0, fmt.Errorf("watch.debounce: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("watch.debounce must be positive, got %s", d)
	}
	return d, nil
}
