package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher calls onChange with every path that changed once the files it
// watches stop changing.
// Files are watched through their parent directory, so replacing a file by
// rename still triggers.
type Watcher struct {
	debounce time.Duration
	onChange func(paths []string)
	files    map[string]bool
	dirs     map[string]func(name string) bool
	triggers atomic.Uint32
}

// New creates a watcher. A non-positive debounce uses DefaultDebounce.
func New(debounce time.Duration, onChange func(paths []string)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		debounce: debounce,
		onChange: onChange,
		files:    make(map[string]bool),
		dirs:     make(map[string]func(string) bool),
	}
}

// AddFile watches a single file.
func (w *Watcher) AddFile(path string) {
	w.files[filepath.Clean(path)] = true
}

// AddDir watches entries of dir accepted by match. A nil match accepts all.
func (w *Watcher) AddDir(dir string, match func(name string) bool) {
	if match == nil {
		match = func(string) bool { return true }
	}
	w.dirs[filepath.Clean(dir)] = match
}

// Run blocks until ctx is done. onChange runs on the calling goroutine, so
// invocations never overlap.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range w.watchedDirs() {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		slog.Debug("Watching directory", "path", dir)
	}

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]struct{})
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}

			pending[filepath.Clean(event.Name)] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)

			count := w.triggers.Add(1)
			slog.Info("Change detected", "paths", paths, "count", count)
			w.onChange(paths)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", "error", err)
		}
	}
}

// TriggerCount returns how many times onChange has been called.
func (w *Watcher) TriggerCount() uint32 {
	return w.triggers.Load()
}

func (w *Watcher) watchedDirs() []string {
	seen := make(map[string]bool)
	var dirs []string

	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for dir := range w.dirs {
		add(dir)
	}
	for file := range w.files {
		add(filepath.Dir(file))
	}

	return dirs
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}

	name := filepath.Clean(event.Name)
	if w.files[name] {
		return true
	}

	match, ok := w.dirs[filepath.Dir(name)]
	return ok && match(filepath.Base(name))
}
