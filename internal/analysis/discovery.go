package analysis

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrRootAccess is the only condition that aborts an aggregation: the root
// directory does not exist or cannot be listed.
var ErrRootAccess = errors.New("root directory not accessible")

// DiscoverOptions controls PatternDiscovery.
type DiscoverOptions struct {
	Extension string   // result file extension, with the dot
	Only      []string // restrict to these run labels; empty means all
}

// Discover lists the run subdirectories of root and the set of result file
// names (base names with extension) present in any of them. Finding nothing
// is not an error: the layout simply has no patterns.
func Discover(root string, opts DiscoverOptions, logger *zap.Logger) (*Layout, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRootAccess, err)
	}

	wanted := make(map[string]bool, len(opts.Only))
	for _, name := range opts.Only {
		wanted[name] = true
	}

	layout := &Layout{Root: root}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if len(wanted) > 0 && !wanted[name] {
			continue
		}
		if isDir(filepath.Join(root, name), e) {
			layout.Runs = append(layout.Runs, name)
		}
	}
	sort.Strings(layout.Runs)

	if len(wanted) > 0 {
		found := make(map[string]bool, len(layout.Runs))
		for _, run := range layout.Runs {
			found[run] = true
		}
		for _, name := range opts.Only {
			if !found[name] {
				logger.Warn("requested run directory not found", zap.String("run", name), zap.String("root", root))
			}
		}
	}

	if len(layout.Runs) == 0 {
		logger.Info("no run subdirectories found", zap.String("root", root))
		return layout, nil
	}
	logger.Info("found run subdirectories", zap.Strings("runs", layout.Runs))

	patterns := make(map[string]struct{})
	for _, run := range layout.Runs {
		dir := filepath.Join(root, run)
		files, err := os.ReadDir(dir)
		if err != nil {
			logger.Warn("cannot list run directory", zap.String("run", run), zap.Error(err))
			continue
		}
		for _, f := range files {
			name := f.Name()
			if strings.HasPrefix(name, ".") || filepath.Ext(name) != opts.Extension {
				continue
			}
			if isDir(filepath.Join(dir, name), f) {
				continue
			}
			patterns[name] = struct{}{}
		}
	}

	for p := range patterns {
		layout.Patterns = append(layout.Patterns, p)
	}
	sort.Strings(layout.Patterns)

	if len(layout.Patterns) == 0 {
		logger.Info("no result files found", zap.String("extension", opts.Extension))
		return layout, nil
	}
	logger.Info("found result file patterns", zap.Strings("patterns", layout.Patterns))
	return layout, nil
}

// isDir follows symlinks, so a linked run directory counts as a run.
func isDir(path string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.IsDir()
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
