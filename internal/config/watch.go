package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads configuration whenever shipwright.yaml changes on disk,
// grounded on jordigilh/kubernaut's fsnotify-based config watch. A bad
// reload (invalid YAML, failed validation) is logged and discarded rather
// than applied — the daemon keeps running on its last-known-good config.
type Watcher struct {
	configDir string
	fw        *fsnotify.Watcher
	onReload  func(*Config)
}

// NewWatcher starts watching configDir for changes to shipwright.yaml.
// onReload is invoked with the newly validated Config each time a reload
// succeeds.
func NewWatcher(configDir string, onReload func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(configDir); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{configDir: configDir, fw: fw, onReload: onReload}, nil
}

// Run blocks, reloading configuration on relevant filesystem events until
// ctx is cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	target := filepath.Join(w.configDir, "shipwright.yaml")
	log := slog.With("component", "config_watcher")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !(ev.Op&(fsnotify.Write|fsnotify.Create) != 0) {
				continue
			}
			w.reload(ctx, log)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context, log *slog.Logger) {
	cfg, err := Initialize(ctx, w.configDir)
	if err != nil {
		log.Warn("config reload failed, keeping previous configuration", "error", err)
		return
	}
	log.Info("configuration reloaded")
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Close stops the underlying filesystem watch.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
