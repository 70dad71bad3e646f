package toolregistry

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces a burst of filesystem events (a ToolCreator
// write followed immediately by an editor's own save events) into a
// single reload.
const watchDebounce = 250 * time.Millisecond

// StartWatching watches the user tools directory for manifest changes and
// triggers LoadAll on every create/write/remove/rename, so a manifest
// dropped in by an external process (not just ToolCreator) is picked up
// without a restart. Grounded on the teacher's skills.Manager watch loop
// (internal/skills/manager.go), generalized from skill bundles to tool
// manifests.
func (r *Registry) StartWatching(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(r.userDir); err != nil {
		_ = watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	r.watchMu.Lock()
	if r.watcher != nil {
		r.watchMu.Unlock()
		_ = watcher.Close()
		cancel()
		return nil
	}
	r.watcher = watcher
	r.watchCancel = cancel
	r.watchMu.Unlock()

	r.watchWg.Add(1)
	go r.watchLoop(watchCtx, watcher)
	return nil
}

// StopWatching closes the watcher started by StartWatching, if any, and
// waits for its goroutine to exit.
func (r *Registry) StopWatching() {
	r.watchMu.Lock()
	if r.watchCancel != nil {
		r.watchCancel()
		r.watchCancel = nil
	}
	watcher := r.watcher
	r.watcher = nil
	r.watchMu.Unlock()

	if watcher != nil {
		_ = watcher.Close()
	}
	r.watchWg.Wait()
}

func (r *Registry) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer r.watchWg.Done()

	var mu sync.Mutex
	var timer *time.Timer
	scheduleReload := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(watchDebounce, func() {
			if err := r.LoadAll(context.Background()); err != nil {
				r.logger.Warn("tool manifest reload failed during watch", "error", err)
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				scheduleReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("tool manifest watch error", "error", err)
		}
	}
}
