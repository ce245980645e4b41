package config

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce absorbs the burst of write events most editors and
// deploy tools generate for a single logical save (temp file + rename).
const reloadDebounce = 250 * time.Millisecond

// Watcher reloads a config file from disk on change and applies the new
// values into a live *Config in place via ReplaceFrom, so already-captured
// pointers (e.g. the tool PolicyEngine's *ToolsConfig) observe the update
// without every subsystem needing its own reload hook.
type Watcher struct {
	path   string
	target *Config
	watch  *fsnotify.Watcher
}

// NewWatcher starts watching path's directory (not the file itself: editors
// commonly replace the file via rename-on-save, which drops an inode-based
// watch) and applies reloads into target.
func NewWatcher(path string, target *Config) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{path: path, target: target, watch: fw}, nil
}

// Run processes filesystem events until the watcher is closed. Call it in
// its own goroutine.
func (w *Watcher) Run() {
	absPath, _ := filepath.Abs(w.path)

	var pending *time.Timer
	for {
		select {
		case ev, ok := <-w.watch.Events:
			if !ok {
				return
			}
			if evAbs, _ := filepath.Abs(ev.Name); evAbs != absPath {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(reloadDebounce, w.reload)
		case err, ok := <-w.watch.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	fresh, err := Load(w.path)
	if err != nil {
		slog.Warn("config reload failed, keeping previous config", "path", w.path, "error", err)
		return
	}
	w.target.ReplaceFrom(fresh)
	slog.Info("config reloaded", "path", w.path)
}

// Close stops the underlying filesystem watch.
func (w *Watcher) Close() error {
	return w.watch.Close()
}
