package swarm

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/swarmux/swarmux/internal/errors"
	"github.com/swarmux/swarmux/internal/logging"
)

// watchDebounce coalesces the burst of write events a single config
// rewrite produces into one reload.
const watchDebounce = 100 * time.Millisecond

// Watcher observes one team's config file and invokes a callback with the
// freshly loaded config whenever another process rewrites it. It is
// purely observational: the single-writer assumption for the config file
// is unchanged.
type Watcher struct {
	watcher  *fsnotify.Watcher
	coord    *Coordinator
	logger   *logging.Logger
	teamName string
	onReload func(*TeamConfig)
	stopCh   chan struct{}
}

// NewWatcher creates a watcher for the named team's config file. The
// callback runs on the watcher's goroutine after each debounced change.
func NewWatcher(coord *Coordinator, teamName string, onReload func(*TeamConfig)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	w := &Watcher{
		watcher:  fw,
		coord:    coord,
		logger:   coord.logger,
		teamName: teamName,
		onReload: onReload,
		stopCh:   make(chan struct{}),
	}

	// Watch the directory rather than the file itself; editors and
	// atomic-rename writers replace the inode.
	dir := filepath.Dir(coord.ConfigPath(teamName))
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, errors.Wrap(err, "failed to watch team directory")
	}
	return w, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop stops the watcher and releases its filesystem handles.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	targetFile := filepath.Base(w.coord.ConfigPath(w.teamName))
	debounce := time.NewTimer(0)
	<-debounce.C

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != targetFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			cfg := w.coord.readConfig(w.teamName)
			if cfg == nil {
				continue
			}
			if w.onReload != nil {
				w.onReload(cfg)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("team config watch error", "team", w.teamName, "error", err.Error())
		}
	}
}
