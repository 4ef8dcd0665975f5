// Package watcher reports edits to Bazel build files under a workspace.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"bazelcp/internal/engine/label"
	"bazelcp/internal/shared/observability"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Change is one debounced batch of build file edits. Packages lists the
// packages whose BUILD file changed. Global is set when a file that can
// affect any package changed (.bzl files, WORKSPACE, MODULE.bazel, .bazelrc).
type Change struct {
	Paths    []string
	Packages []label.Label
	Global   bool
}

var (
	buildFiles  = map[string]bool{"BUILD": true, "BUILD.bazel": true}
	globalFiles = map[string]bool{
		"WORKSPACE":       true,
		"WORKSPACE.bazel": true,
		"MODULE.bazel":    true,
		".bazelrc":        true,
	}
)

type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	root       string
	debounce   time.Duration
	exclude    []glob.Glob
	onChange   func(Change)
	callbackMu sync.Mutex

	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer
}

// NewWatcher watches the workspace at root. Exclude patterns are matched
// against slash-separated paths relative to root.
func NewWatcher(root string, debounce time.Duration, exclude []string, onChange func(Change)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	compiled := make([]glob.Glob, 0, len(exclude))
	for _, pattern := range exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		root:      abs,
		debounce:  debounce,
		exclude:   compiled,
		onChange:  onChange,
		pending:   make(map[string]time.Time),
	}, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// Start registers every non-excluded directory under the root and begins
// delivering changes.
func (w *Watcher) Start() error {
	if err := w.watchRecursive(w.root); err != nil {
		return err
	}
	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if w.excludedDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.excludedDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if !w.relevant(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) == 0 {
		return
	}
	change := w.classify(paths)

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(change)
}

func (w *Watcher) classify(paths []string) Change {
	slices.Sort(paths)
	change := Change{Paths: paths}
	seen := make(map[label.Label]bool)
	for _, p := range paths {
		base := filepath.Base(p)
		if !buildFiles[base] {
			change.Global = true
			continue
		}
		pkg, ok := PackageOf(w.root, p)
		if !ok || seen[pkg] {
			continue
		}
		seen[pkg] = true
		change.Packages = append(change.Packages, pkg)
	}
	label.Sort(change.Packages)
	return change
}

// PackageOf returns the package wildcard label of the BUILD file at path,
// relative to the workspace root.
func PackageOf(root, path string) (label.Label, bool) {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil {
		return label.Label{}, false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return label.Label{}, false
	}
	if rel == "." {
		rel = ""
	}
	return label.PackageOf(rel), true
}

func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func (w *Watcher) excludedDir(path string) bool {
	rel, ok := w.relative(path)
	if !ok || rel == "." {
		return false
	}
	for _, g := range w.exclude {
		if g.Match(rel) || g.Match(rel+"/") {
			return true
		}
	}
	return false
}

func (w *Watcher) relevant(path string) bool {
	base := filepath.Base(path)
	if !buildFiles[base] && !globalFiles[base] && filepath.Ext(base) != ".bzl" {
		return false
	}
	rel, ok := w.relative(path)
	if !ok {
		return false
	}
	for _, g := range w.exclude {
		if g.Match(rel) {
			return false
		}
	}
	return true
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(dir string) {
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if w.relevant(path) {
			w.scheduleChange(path)
		}
		return nil
	})
}
