package server

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/acp-protocol/acp-mcp/pkg/acp"
	"github.com/acp-protocol/acp-mcp/pkg/logging"
)

// reloadDebounce coalesces bursts of writes (indexers rewrite all
// three files back to back) into a single reload.
const reloadDebounce = 500 * time.Millisecond

// Watcher hot-reloads the application state when the indexer rewrites
// the cache directory.
type Watcher struct {
	state   *AppState
	watcher *fsnotify.Watcher
}

// NewWatcher watches the project's cache directory. The directory
// itself is watched, not the individual files, so atomic
// rename-into-place updates are seen too.
func NewWatcher(state *AppState) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(state.Root(), acp.CacheDir)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{state: state, watcher: fw}, nil
}

// Run processes events until the context is canceled. It is meant to
// run on its own goroutine next to the stdio server.
func (w *Watcher) Run(ctx context.Context) {
	logger := logging.GetLogger()

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isTrackedFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			logger.Debug(ctx, "cache change detected: %s %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			// Reload failure keeps the old snapshot; nothing else to do.
			_ = w.state.Reload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn(ctx, "file watcher error: %v", err)
		}
	}
}

// Close stops the underlying file watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func isTrackedFile(path string) bool {
	switch filepath.Base(path) {
	case acp.CacheFile, acp.VarsFileName, acp.AttemptsFileName:
		return true
	}
	return false
}
