package hookconfig

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Load reads a Config from a YAML file, in the shape cmd/hookctl accepts
// for its descriptor and watch subcommands. This is the dev-harness substitute for the
// debugger populating the ten generic-offset words through the exported
// symbol surface (spec.md §6) — production attaches never go through this
// path.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("hookconfig: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("hookconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Watcher reloads a Config from disk whenever the backing file changes, so
// a developer iterating on a new VM version's descriptor can edit the
// offsets and have cmd/hookctl pick them up without restarting the
// harness. Adapted from the teacher's pkg/hotreload file watcher, scoped
// down to a single file instead of a directory tree.
type Watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	onLoad  func(Config, error)
	mu      sync.Mutex
	current Config
	done    chan struct{}
}

// NewWatcher creates a Watcher for path. onLoad is called once immediately
// with the initial load, then again every time the file changes.
func NewWatcher(path string, onLoad func(Config, error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("hookconfig: new watcher: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("hookconfig: watch %s: %w", path, err)
	}

	w := &Watcher{path: path, fsw: fsw, onLoad: onLoad, done: make(chan struct{})}

	cfg, err := Load(path)
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	if onLoad != nil {
		onLoad(cfg, err)
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			w.mu.Lock()
			if err == nil {
				w.current = cfg
			}
			w.mu.Unlock()
			if w.onLoad != nil {
				w.onLoad(cfg, err)
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Current returns the most recently successfully loaded Config.
func (w *Watcher) Current() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
