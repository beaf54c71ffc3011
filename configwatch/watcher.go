// Package configwatch reloads the controller's configuration tree when the
// backing file changes on disk. It watches the file's directory (editors
// replace files rather than rewriting them in place) and hands every freshly
// loaded tree to a callback; what to do with the new tree, typically
// Orchestrator.Reload for the affected sections, is the embedder's decision.
package configwatch

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/frostdyne/coldcore"
)

// OnChange receives every successfully reloaded configuration tree.
type OnChange func(tree *coldcore.ConfigTree)

// Watcher watches one configuration file and reloads it on change.
type Watcher struct {
	path     string
	logger   coldcore.Logger
	onChange OnChange

	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher for the configuration file at path.
func New(path string, logger coldcore.Logger, onChange OnChange) *Watcher {
	return &Watcher{
		path:     path,
		logger:   logger,
		onChange: onChange,
		done:     make(chan struct{}),
	}
}

// Start begins watching. A change that fails to parse is logged and dropped,
// keeping the last good tree in effect.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.loop()

	w.logger.Info("Config watcher started", "path", w.path)
	return nil
}

// Stop ends watching and waits for the event loop to drain.
func (w *Watcher) Stop() {
	if w.fsw == nil {
		return
	}
	close(w.done)
	w.fsw.Close()
	w.wg.Wait()
	w.logger.Info("Config watcher stopped")
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.isConfigEvent(event) {
				continue
			}
			tree, err := coldcore.LoadConfigFile(w.path)
			if err != nil {
				w.logger.Error("Config reload failed, keeping previous config", "path", w.path, "error", err)
				continue
			}
			w.logger.Info("Config file changed, reloading", "path", w.path, "op", event.Op.String())
			w.onChange(tree)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("Config watcher error", "error", err)
		}
	}
}

// isConfigEvent filters directory noise down to writes of our file, including
// the rename-and-replace pattern editors use.
func (w *Watcher) isConfigEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return false
	}
	return event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create)
}
