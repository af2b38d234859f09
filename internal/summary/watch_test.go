package summary

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cycleLog struct {
	mu   sync.Mutex
	sums []*Summary
}

func (c *cycleLog) record(sum *Summary, err error) {
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sums = append(c.sums, sum)
}

func (c *cycleLog) last() (*Summary, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sums) == 0 {
		return nil, 0
	}
	return c.sums[len(c.sums)-1], len(c.sums)
}

func TestWatcher_ReaggregatesOnChange(t *testing.T) {
	root := t.TempDir()
	put(t, root, "run1", "rmsd.xvg", series(5, 0))

	cycles := &cycleLog{}
	w := NewWatcher(New(DefaultOptions(), nil), root, 50*time.Millisecond, nil)
	w.OnCycle = cycles.record

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, n := cycles.last()
		return n == 1
	}, 5*time.Second, 10*time.Millisecond)

	// a new run directory is picked up, then files written inside it
	put(t, root, "run2", "rmsd.xvg", series(8, 100))
	require.Eventually(t, func() bool {
		sum, _ := cycles.last()
		return len(sum.Runs) == 2 && len(sum.Tables) == 1 && sum.Tables[0].ReferenceRun == "run2"
	}, 5*time.Second, 10*time.Millisecond)

	put(t, root, "run1", "rmsf.xvg", series(3, 0))
	require.Eventually(t, func() bool {
		sum, _ := cycles.last()
		return len(sum.Tables) == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.FileExists(t, filepath.Join(root, "rmsf.csv"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_MissingRoot(t *testing.T) {
	w := NewWatcher(New(DefaultOptions(), nil), filepath.Join(t.TempDir(), "absent"), time.Second, nil)
	assert.Error(t, w.Run(context.Background()))
}

func TestWatcher_Relevant(t *testing.T) {
	root := t.TempDir()
	put(t, root, "run1", "rmsd.xvg", "0 1\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "rmsd.csv"), nil, 0o644))

	fw, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer fw.Close()

	w := NewWatcher(New(DefaultOptions(), nil), root, time.Second, nil)
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"result file written", fsnotify.Event{Name: filepath.Join(root, "run1", "rmsd.xvg"), Op: fsnotify.Write}, true},
		{"result file removed", fsnotify.Event{Name: filepath.Join(root, "run1", "rmsd.xvg"), Op: fsnotify.Remove}, true},
		{"other extension", fsnotify.Event{Name: filepath.Join(root, "run1", "md.log"), Op: fsnotify.Write}, false},
		{"hidden temp file", fsnotify.Event{Name: filepath.Join(root, "run1", ".rmsd.xvg.swp"), Op: fsnotify.Create}, false},
		{"chmod only", fsnotify.Event{Name: filepath.Join(root, "run1", "rmsd.xvg"), Op: fsnotify.Chmod}, false},
		{"table created in root", fsnotify.Event{Name: filepath.Join(root, "rmsd.csv"), Op: fsnotify.Create}, false},
		{"table removed from root", fsnotify.Event{Name: filepath.Join(root, "rmsd.csv"), Op: fsnotify.Remove}, false},
		{"run directory created", fsnotify.Event{Name: filepath.Join(root, "run1"), Op: fsnotify.Create}, true},
		{"run directory removed", fsnotify.Event{Name: filepath.Join(root, "run9"), Op: fsnotify.Remove}, true},
		{"nested file", fsnotify.Event{Name: filepath.Join(root, "run1", "sub", "a.xvg"), Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(fw, tt.event))
		})
	}
}
