package summary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-runs an aggregation whenever result files of the run
// directories change. Bursts of events (an engine flushing a file, a run
// directory being copied in) are collapsed into one aggregation after the
// debounce interval.
type Watcher struct {
	agg      *Aggregator
	root     string
	debounce time.Duration
	logger   *zap.Logger

	// OnCycle, when set, receives the outcome of every aggregation.
	OnCycle func(*Summary, error)
}

// NewWatcher prepares a Watcher for root.
func NewWatcher(agg *Aggregator, root string, debounce time.Duration, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{agg: agg, root: filepath.Clean(root), debounce: debounce, logger: logger}
}

// Run aggregates once, then again after every relevant change, until ctx
// is done. It fails only when the root cannot be watched or read.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", w.root, err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") && isDirPath(filepath.Join(w.root, e.Name())) {
			w.addRun(fw, filepath.Join(w.root, e.Name()))
		}
	}

	if err := w.cycle(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.relevant(fw, event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-timer.C:
			if err := w.cycle(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) cycle(ctx context.Context) error {
	sum, err := w.agg.Run(ctx, w.root)
	if w.OnCycle != nil {
		w.OnCycle(sum, err)
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (w *Watcher) addRun(fw *fsnotify.Watcher, dir string) {
	if err := fw.Add(dir); err != nil {
		w.logger.Warn("cannot watch run directory", zap.String("run", filepath.Base(dir)), zap.Error(err))
		return
	}
	w.logger.Debug("watching run directory", zap.String("run", filepath.Base(dir)))
}

// relevant reports whether event may change the aggregation: result files
// inside a run directory, and run directories appearing or disappearing.
// Anything written to the root itself (tables, plots, reports) is ignored.
func (w *Watcher) relevant(fw *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	parent := filepath.Dir(event.Name)

	if parent == w.root {
		if event.Op&fsnotify.Create != 0 {
			if !isDirPath(event.Name) {
				return false
			}
			w.addRun(fw, event.Name)
			return true
		}
		// a vanished entry of the root may have been a run directory
		return event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && filepath.Ext(name) != w.agg.opts.Format.Extension
	}

	if filepath.Dir(parent) == w.root {
		return filepath.Ext(name) == w.agg.opts.Extension
	}
	return false
}

func isDirPath(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
