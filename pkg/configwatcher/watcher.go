package configwatcher

import (
	"context"
	"path/filepath"
	"student_forms/pkg/logger"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Reloader is invoked once per burst of changes under the watched path.
type Reloader func() error

const debounce = time.Second

// Watch calls reload after writes, creates, renames or removes under path,
// coalescing bursts of events. It blocks until ctx is done.
func Watch(ctx context.Context, path string, reload Reloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if err := watcher.Add(absPath); err != nil {
		return err
	}

	var mu sync.Mutex
	timer := time.NewTimer(0)
	<-timer.C

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&relevant != 0 {
				mu.Lock()
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
				mu.Unlock()
			}
		case <-timer.C:
			if err := reload(); err != nil {
				logger.Log.Error("Failed to reload watched path", zap.String("path", absPath), zap.Error(err))
				continue
			}
			logger.Log.Info("Reloaded watched path", zap.String("path", absPath))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("Watcher error", zap.Error(err))
		}
	}
}
